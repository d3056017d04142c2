package ask

import (
	"context"

	"github.com/kailas-cloud/normrag/internal/domain/norm"
	"github.com/kailas-cloud/normrag/internal/repository/normstore"
	"github.com/kailas-cloud/normrag/internal/usecase/retrieval"
	"github.com/kailas-cloud/normrag/internal/usecase/synthesis"
)

// SnapshotSource hands out the active norm store snapshot (ISP).
type SnapshotSource interface {
	Current() *normstore.Snapshot
}

// TextRetriever searches free-text norms (ISP).
type TextRetriever interface {
	Retrieve(ctx context.Context, idx retrieval.TextIndex, q retrieval.TextQuery) ([]norm.Text, error)
}

// TableRetriever searches table norms (ISP).
type TableRetriever interface {
	Retrieve(ctx context.Context, idx retrieval.TableIndex, q retrieval.TableQuery) ([]norm.Table, error)
}

// Synthesizer turns retrieved norms into an answer (ISP).
type Synthesizer interface {
	Synthesize(ctx context.Context, in synthesis.Input, progress synthesis.ProgressFunc) (string, error)
}
