package feedback

import (
	"context"

	domfb "github.com/kailas-cloud/normrag/internal/domain/feedback"
)

// Sink appends feedback records (ISP).
type Sink interface {
	Append(ctx context.Context, r domfb.Record) error
}
