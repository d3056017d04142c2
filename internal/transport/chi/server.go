package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/normrag/internal/domain"
	"github.com/kailas-cloud/normrag/internal/domain/norm"
	"github.com/kailas-cloud/normrag/internal/logger"
	askuc "github.com/kailas-cloud/normrag/internal/usecase/ask"
	healthuc "github.com/kailas-cloud/normrag/internal/usecase/health"
	"github.com/kailas-cloud/normrag/internal/usecase/retrieval"
	"github.com/kailas-cloud/normrag/internal/usecase/synthesis"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Asker answers questions and serves norm lookups.
type Asker interface {
	Ask(ctx context.Context, q askuc.Question, progress synthesis.ProgressFunc) (askuc.Answer, error)
	SearchText(ctx context.Context, q retrieval.TextQuery) ([]norm.Text, error)
	SearchTable(ctx context.Context, q retrieval.TableQuery) ([]norm.Table, error)
	Norm(id string) (norm.Text, error)
}

// FeedbackSubmitter records answer ratings.
type FeedbackSubmitter interface {
	Submit(ctx context.Context, question, answer string, normIDs []string, score int) error
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the norm question-answering HTTP API.
type Server struct {
	ask           Asker
	feedback      FeedbackSubmitter
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(ask Asker, feedback FeedbackSubmitter, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{ask: ask, feedback: feedback, health: health, logger: logger}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidFeedback, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNormNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrCompletionProviderError, http.StatusBadGateway, ErrorCodeCompletionProviderError),
		sentinelHandler(domain.ErrIndexMismatch, http.StatusServiceUnavailable, ErrorCodeStoreUnavailable),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusServiceUnavailable, ErrorCodeStoreUnavailable),
	}
	return s
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r gochi.Router) {
		r.Post("/ask", s.Ask)
		r.Get("/norms/text/search", s.SearchTextNorms)
		r.Get("/norms/table/search", s.SearchTableNorms)
		r.Get("/norms/*", s.GetNorm)
		r.Post("/feedback", s.SubmitFeedback)
	})
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reqLogger := logger.FromContext(r.Context())
	progress := func(fraction float64, label string) {
		reqLogger.Debug("Synthesis progress", zap.Float64("fraction", fraction), zap.String("label", label))
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	ans, err := s.ask.Ask(ctx, askuc.Question{
		Text:      req.Question,
		TextTopK:  req.TextTopK,
		TableTopK: req.TableTopK,
		AppliesTo: req.AppliesTo,
		Domains:   norm.NormalizeTagList(req.Domains),
		Sources:   norm.NormalizeTagList(req.Sources),
	}, progress)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, AskResponse{
		Answer:     ans.Text,
		TextNorms:  textNormsToAPI(ans.TextNorms),
		TableNorms: tableNormsToAPI(ans.TableNorms),
	})
}

// SearchTextNorms handles GET /v1/norms/text/search.
func (s *Server) SearchTextNorms(w http.ResponseWriter, r *http.Request) {
	var p textSearchParams
	if err := p.bind(r); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	items, err := s.ask.SearchText(ctx, retrieval.TextQuery{
		Query:     p.Q,
		TopK:      p.TopK,
		AppliesTo: p.AppliesTo,
		Domains:   norm.NormalizeTagList(p.Domain),
		Sources:   norm.NormalizeTagList(p.Source),
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchResponse[TextNorm]{Items: textNormsToAPI(items), Total: len(items)})
}

// SearchTableNorms handles GET /v1/norms/table/search.
func (s *Server) SearchTableNorms(w http.ResponseWriter, r *http.Request) {
	var p tableSearchParams
	if err := p.bind(r); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	items, err := s.ask.SearchTable(ctx, retrieval.TableQuery{
		Query:   p.Q,
		TopK:    p.TopK,
		Sources: norm.NormalizeTagList(p.Source),
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchResponse[TableNorm]{Items: tableNormsToAPI(items), Total: len(items)})
}

// GetNorm handles GET /v1/norms/{id}. The id may be a full_id or a local id
// and may contain slashes.
func (s *Server) GetNorm(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(gochi.URLParam(r, "*"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid norm id")
		return
	}
	n, err := s.ask.Norm(id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textNormToAPI(n))
}

// SubmitFeedback handles POST /v1/feedback.
func (s *Server) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Score == nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "score is required")
		return
	}

	if err := s.feedback.Submit(r.Context(), req.Question, req.Answer, req.NormIDs, *req.Score); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:    string(report.Status),
		Checks:    checks,
		Timestamp: time.Now().UTC(),
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type textSearchParams struct {
	Q         string
	TopK      int
	AppliesTo string
	Domain    []string
	Source    []string
}

func (p *textSearchParams) bind(r *http.Request) error {
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "q", q, &p.Q); err != nil {
		return err
	}
	if err := runtime.BindQueryParameter("form", true, false, "top_k", q, &p.TopK); err != nil {
		return err
	}
	if err := runtime.BindQueryParameter("form", true, false, "applies_to", q, &p.AppliesTo); err != nil {
		return err
	}
	if err := runtime.BindQueryParameter("form", true, false, "domain", q, &p.Domain); err != nil {
		return err
	}
	return runtime.BindQueryParameter("form", true, false, "source", q, &p.Source)
}

type tableSearchParams struct {
	Q      string
	TopK   int
	Source []string
}

func (p *tableSearchParams) bind(r *http.Request) error {
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "q", q, &p.Q); err != nil {
		return err
	}
	if err := runtime.BindQueryParameter("form", true, false, "top_k", q, &p.TopK); err != nil {
		return err
	}
	return runtime.BindQueryParameter("form", true, false, "source", q, &p.Source)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage) {
	if n := usage.EmbeddingTokens(); n > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.FormatInt(n, 10))
	}
	if usage.ModelCalls() > 0 {
		w.Header().Set("X-Completion-Tokens", strconv.FormatInt(usage.CompletionTokens(), 10))
		w.Header().Set("X-Model-Calls", strconv.FormatInt(usage.ModelCalls(), 10))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrInvalidFeedback,
		domain.ErrNotFound,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrCompletionProviderError,
		domain.ErrIndexMismatch,
		domain.ErrVectorDimMismatch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
