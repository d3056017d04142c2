package feedback

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domfb "github.com/kailas-cloud/normrag/internal/domain/feedback"
	logpkg "github.com/kailas-cloud/normrag/internal/logger"
)

// Service validates feedback and writes it to every configured sink.
type Service struct {
	sinks  []Sink
	now    func() time.Time
	logger *zap.Logger
}

// New creates a feedback service writing to sinks in order.
func New(logger *zap.Logger, sinks ...Sink) *Service {
	return &Service{sinks: sinks, now: time.Now, logger: logger}
}

// Submit records one rating. Invalid input returns domain.ErrInvalidFeedback
// and nothing is written.
func (s *Service) Submit(ctx context.Context, question, answer string, normIDs []string, score int) error {
	rec, err := domfb.New(question, answer, normIDs, score, s.now())
	if err != nil {
		return err
	}
	for _, sink := range s.sinks {
		if err := sink.Append(ctx, rec); err != nil {
			return fmt.Errorf("append feedback: %w", err)
		}
	}
	logpkg.FromContextOr(ctx, s.logger).Info("Feedback recorded",
		zap.Int("score", rec.Score()),
		zap.Int("norm_ids", len(rec.NormIDs())),
	)
	return nil
}
