package synthesis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/normrag/internal/domain"
	"github.com/kailas-cloud/normrag/internal/domain/batch"
	"github.com/kailas-cloud/normrag/internal/domain/norm"
	logpkg "github.com/kailas-cloud/normrag/internal/logger"
	"github.com/kailas-cloud/normrag/internal/metrics"
)

// Mode selects how batches are formed and prompted.
type Mode string

// Synthesis modes.
const (
	// ModeCategorized prompts text and table batches separately, grouped by category.
	ModeCategorized Mode = "categorized"
	// ModeCombined pairs text batch i with table batch i in one flat prompt.
	ModeCombined Mode = "combined"
)

// ParseMode validates a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCategorized, ModeCombined:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown synthesis mode %q (want categorized|combined)", s)
	}
}

// DefaultWorkers is the default number of concurrent model calls.
const DefaultWorkers = 4

// Progress labels.
const (
	labelStart = "Начало обработки"
	labelDone  = "Финальный ответ готов"
)

// Options configures the orchestrator.
type Options struct {
	Mode          Mode
	Workers       int
	Strategy      batch.Strategy
	BatchSize     int
	Model         string
	Jurisdiction  string
	ReasoningTags []string
}

// DefaultOptions returns the categorized, halves-strategy setup.
func DefaultOptions() Options {
	return Options{
		Mode:          ModeCategorized,
		Workers:       DefaultWorkers,
		Strategy:      batch.StrategyHalves,
		BatchSize:     batch.DefaultFixedSize,
		Jurisdiction:  DefaultJurisdiction,
		ReasoningTags: []string{"think"},
	}
}

// Input is one synthesis request.
type Input struct {
	Question   string
	TextNorms  []norm.Text
	TableNorms []norm.Table
	Sources    []string
}

// Service fans batch prompts out to the model and consolidates the partial answers.
type Service struct {
	llm    Completer
	opts   Options
	logger *zap.Logger
}

// New creates a synthesis service. Zero option fields take defaults.
func New(llm Completer, opts Options, logger *zap.Logger) *Service {
	d := DefaultOptions()
	if opts.Mode == "" {
		opts.Mode = d.Mode
	}
	if opts.Workers < 1 {
		opts.Workers = d.Workers
	}
	if opts.Strategy == "" {
		opts.Strategy = d.Strategy
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = d.BatchSize
	}
	if opts.ReasoningTags == nil {
		opts.ReasoningTags = d.ReasoningTags
	}
	return &Service{llm: llm, opts: opts, logger: logger}
}

type prompt struct {
	id   string
	text string
}

// Synthesize answers the question from the given norms only.
//
// Model failures never surface as errors: a failed batch becomes an inline
// error string and the summary still runs. The error return is reserved for
// misconfiguration.
func (s *Service) Synthesize(ctx context.Context, in Input, progress ProgressFunc) (string, error) {
	if progress == nil {
		progress = func(float64, string) {}
	}

	texts := norm.DedupText(in.TextNorms)
	tables := norm.DedupTable(in.TableNorms)
	if len(texts) == 0 && len(tables) == 0 {
		return NoDataMessage, nil
	}

	var prompts []prompt
	switch s.opts.Mode {
	case ModeCategorized:
		prompts = s.categorizedPrompts(in, texts, tables)
	case ModeCombined:
		prompts = s.combinedPrompts(in, texts, tables)
	default:
		return "", fmt.Errorf("synthesis mode %q: %w", s.opts.Mode, errors.ErrUnsupported)
	}
	metrics.SynthesisBatches.WithLabelValues(string(s.opts.Mode)).Observe(float64(len(prompts)))

	start := time.Now()
	progress(0, labelStart)
	partials := s.runBatches(ctx, prompts, progress)

	if len(partials) == 0 {
		progress(1, labelDone)
		return NothingToSummarizeMessage, nil
	}

	answer := s.call(ctx, SummaryPrompt(in.Question, partials, s.opts.Jurisdiction))
	progress(1, labelDone)

	logpkg.FromContextOr(ctx, s.logger).Info("Synthesis done",
		zap.String("mode", string(s.opts.Mode)),
		zap.Int("text_norms", len(texts)),
		zap.Int("table_norms", len(tables)),
		zap.Int("batches", len(prompts)),
		zap.Duration("duration", time.Since(start)),
	)
	return answer, nil
}

func (s *Service) categorizedPrompts(in Input, texts []norm.Text, tables []norm.Table) []prompt {
	var out []prompt
	i := 0
	for b := range batch.Split(texts, s.opts.Strategy.Size(len(texts), s.opts.BatchSize)) {
		out = append(out, prompt{
			id:   fmt.Sprintf("text-%d", i),
			text: CategorizedPrompt(in.Question, b, nil, in.Sources),
		})
		i++
	}
	i = 0
	for b := range batch.Split(tables, s.opts.Strategy.Size(len(tables), s.opts.BatchSize)) {
		out = append(out, prompt{
			id:   fmt.Sprintf("table-%d", i),
			text: CategorizedPrompt(in.Question, nil, b, in.Sources),
		})
		i++
	}
	return out
}

// combinedPrompts always uses the fixed batch size so that text batch i and
// table batch i cover comparable slices of the two rankings.
func (s *Service) combinedPrompts(in Input, texts []norm.Text, tables []norm.Table) []prompt {
	size := batch.StrategyFixed.Size(0, s.opts.BatchSize)
	textBatches := slices.Collect(batch.Split(texts, size))
	tableBatches := slices.Collect(batch.Split(tables, size))

	n := max(len(textBatches), len(tableBatches))
	out := make([]prompt, n)
	for i := range n {
		var tb []norm.Text
		var rb []norm.Table
		if i < len(textBatches) {
			tb = textBatches[i]
		}
		if i < len(tableBatches) {
			rb = tableBatches[i]
		}
		out[i] = prompt{id: fmt.Sprintf("combined-%d", i), text: CombinedPrompt(in.Question, tb, rb)}
	}
	return out
}

// runBatches dispatches prompts on a bounded pool and returns the partial
// answers in completion order.
func (s *Service) runBatches(ctx context.Context, prompts []prompt, progress ProgressFunc) []string {
	results := make(chan batch.Result, len(prompts))

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	go func() {
		for _, p := range prompts {
			g.Go(func() error {
				results <- s.runBatch(ctx, p)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	partials := make([]string, 0, len(prompts))
	total := len(prompts)
	for r := range results {
		if r.Status() == batch.StatusOK {
			partials = append(partials, r.Text())
		} else {
			metrics.SynthesisBatchFailuresTotal.Inc()
			logpkg.FromContextOr(ctx, s.logger).Warn("Batch model call failed", zap.String("batch", r.ID()), zap.Error(r.Err()))
			partials = append(partials, ModelErrorPrefix+r.Err().Error())
		}
		done := len(partials)
		progress(float64(done)/float64(total+1), fmt.Sprintf("Обработано %d из %d блоков", done, total))
	}
	return partials
}

func (s *Service) runBatch(ctx context.Context, p prompt) batch.Result {
	res, err := s.llm.Complete(ctx, domain.CompletionRequest{Model: s.opts.Model, Prompt: p.text})
	if err != nil {
		return batch.NewError(p.id, err)
	}
	return batch.NewOK(p.id, s.clean(res.Text))
}

// call runs one model call and degrades failures to the fixed inline messages.
func (s *Service) call(ctx context.Context, text string) string {
	res, err := s.llm.Complete(ctx, domain.CompletionRequest{Model: s.opts.Model, Prompt: text})
	if err != nil {
		logpkg.FromContextOr(ctx, s.logger).Warn("Summary model call failed", zap.Error(err))
		return ModelErrorPrefix + err.Error()
	}
	return s.clean(res.Text)
}

func (s *Service) clean(text string) string {
	if text = StripReasoning(text, s.opts.ReasoningTags...); text == "" {
		return EmptyResponseMessage
	}
	return text
}
