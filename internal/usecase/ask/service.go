package ask

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/normrag/internal/domain"
	"github.com/kailas-cloud/normrag/internal/domain/norm"
	logpkg "github.com/kailas-cloud/normrag/internal/logger"
	"github.com/kailas-cloud/normrag/internal/usecase/retrieval"
	"github.com/kailas-cloud/normrag/internal/usecase/synthesis"
)

// RetrievalErrorPrefix starts the diagnostic answer returned when search fails.
const RetrievalErrorPrefix = "❌ Ошибка поиска по нормативной базе: "

// Question is one end-to-end request.
type Question struct {
	Text      string
	TextTopK  int
	TableTopK int
	AppliesTo string
	Domains   []string
	Sources   []string
}

// Answer is the synthesized answer plus the norms it was built from.
type Answer struct {
	Text       string
	TextNorms  []norm.Text
	TableNorms []norm.Table
}

// Service runs retrieval and synthesis against one store snapshot.
type Service struct {
	store  SnapshotSource
	texts  TextRetriever
	tables TableRetriever
	synth  Synthesizer
	logger *zap.Logger
}

// New creates an ask service.
func New(store SnapshotSource, texts TextRetriever, tables TableRetriever, synth Synthesizer, logger *zap.Logger) *Service {
	return &Service{store: store, texts: texts, tables: tables, synth: synth, logger: logger}
}

// Ask answers a question. A blank question is rejected with ErrEmptyQuery. When one
// retriever fails the answer is synthesized from the other; when both fail the
// answer is a diagnostic.
func (s *Service) Ask(ctx context.Context, q Question, progress synthesis.ProgressFunc) (Answer, error) {
	if strings.TrimSpace(q.Text) == "" {
		return Answer{}, domain.ErrEmptyQuery
	}
	snap := s.store.Current()
	log := logpkg.FromContextOr(ctx, s.logger)

	// each leg fails on its own; the answer is built from whatever was found
	var (
		ans               Answer
		textErr, tableErr error
		g                 errgroup.Group
	)
	g.Go(func() error {
		ans.TextNorms, textErr = s.texts.Retrieve(ctx, snap.Text, retrieval.TextQuery{
			Query: q.Text, TopK: q.TextTopK, AppliesTo: q.AppliesTo, Domains: q.Domains, Sources: q.Sources,
		})
		if textErr != nil {
			textErr = fmt.Errorf("text retrieval: %w", textErr)
			log.Warn("Text retrieval failed", zap.Error(textErr))
		}
		return nil
	})
	g.Go(func() error {
		ans.TableNorms, tableErr = s.tables.Retrieve(ctx, snap.Table, retrieval.TableQuery{
			Query: q.Text, TopK: q.TableTopK, Sources: q.Sources,
		})
		if tableErr != nil {
			tableErr = fmt.Errorf("table retrieval: %w", tableErr)
			log.Warn("Table retrieval failed", zap.Error(tableErr))
		}
		return nil
	})
	_ = g.Wait()

	if textErr != nil && tableErr != nil {
		err := errors.Join(textErr, tableErr)
		log.Error("Retrieval failed", zap.Error(err))
		return Answer{Text: RetrievalErrorPrefix + err.Error()}, nil
	}

	text, err := s.synth.Synthesize(ctx, synthesis.Input{
		Question:   q.Text,
		TextNorms:  ans.TextNorms,
		TableNorms: ans.TableNorms,
		Sources:    q.Sources,
	}, progress)
	if err != nil {
		return Answer{}, fmt.Errorf("synthesize: %w", err)
	}
	ans.Text = text
	return ans, nil
}

// SearchText runs only the text retriever.
func (s *Service) SearchText(ctx context.Context, q retrieval.TextQuery) ([]norm.Text, error) {
	res, err := s.texts.Retrieve(ctx, s.store.Current().Text, q)
	if err != nil {
		return nil, fmt.Errorf("search text norms: %w", err)
	}
	return res, nil
}

// SearchTable runs only the table retriever.
func (s *Service) SearchTable(ctx context.Context, q retrieval.TableQuery) ([]norm.Table, error) {
	res, err := s.tables.Retrieve(ctx, s.store.Current().Table, q)
	if err != nil {
		return nil, fmt.Errorf("search table norms: %w", err)
	}
	return res, nil
}

// Norm looks a text norm up by full_id, falling back to its local id.
func (s *Service) Norm(id string) (norm.Text, error) {
	return s.store.Current().FindText(id)
}
