package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/normrag/internal/domain"
	"github.com/kailas-cloud/normrag/internal/domain/norm"
	askuc "github.com/kailas-cloud/normrag/internal/usecase/ask"
	healthuc "github.com/kailas-cloud/normrag/internal/usecase/health"
	"github.com/kailas-cloud/normrag/internal/usecase/retrieval"
	"github.com/kailas-cloud/normrag/internal/usecase/synthesis"
)

// --- Mocks ---

type mockAsker struct {
	answer    askuc.Answer
	err       error
	question  askuc.Question
	textQuery retrieval.TextQuery
	tableQ    retrieval.TableQuery
	texts     []norm.Text
	tables    []norm.Table
	normID    string
	norm      norm.Text
}

func (m *mockAsker) Ask(ctx context.Context, q askuc.Question, _ synthesis.ProgressFunc) (askuc.Answer, error) {
	m.question = q
	u := domain.UsageFromContext(ctx)
	u.AddEmbeddingTokens(12)
	u.AddCompletion(300)
	return m.answer, m.err
}

func (m *mockAsker) SearchText(_ context.Context, q retrieval.TextQuery) ([]norm.Text, error) {
	m.textQuery = q
	return m.texts, m.err
}

func (m *mockAsker) SearchTable(_ context.Context, q retrieval.TableQuery) ([]norm.Table, error) {
	m.tableQ = q
	return m.tables, m.err
}

func (m *mockAsker) Norm(id string) (norm.Text, error) {
	m.normID = id
	return m.norm, m.err
}

type mockFeedback struct {
	err   error
	calls int
	score int
}

func (m *mockFeedback) Submit(_ context.Context, _, _ string, _ []string, score int) error {
	m.calls++
	m.score = score
	return m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- Helpers ---

func newRouter(a *mockAsker, f *mockFeedback, h *mockHealth) http.Handler {
	r := gochi.NewRouter()
	NewServer(a, f, h, zap.NewNop()).Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

func sampleText() norm.Text {
	return norm.ReconstructText(norm.TextFields{
		ID: "4.2", FullID: "СП РК Жилые здания:4.2", Source: "СП РК Жилые здания", Text: "Высота не менее 2,7 м",
	})
}

// --- Tests ---

func TestAsk_OK(t *testing.T) {
	a := &mockAsker{answer: askuc.Answer{
		Text:      "ответ",
		TextNorms: []norm.Text{sampleText()},
		TableNorms: []norm.Table{
			norm.ReconstructTable("Высота", map[string]string{"I": "3"}, "A", "A:Высота"),
		},
	}}
	h := newRouter(a, &mockFeedback{}, &mockHealth{})

	rr := do(t, h, http.MethodPost, "/v1/ask",
		`{"question":"высота потолка?","applies_to":"кухня","sources":["A, B"],"text_top_k":10}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body)
	}
	var resp AskResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "ответ" || len(resp.TextNorms) != 1 || len(resp.TableNorms) != 1 {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.TextNorms[0].Category != string(norm.CategoryResidential) {
		t.Errorf("expected residential category, got %q", resp.TextNorms[0].Category)
	}
	if got := a.question.Sources; len(got) != 2 || got[1] != "B" {
		t.Errorf("expected comma-joined sources flattened, got %v", got)
	}
	if a.question.TextTopK != 10 || a.question.AppliesTo != "кухня" {
		t.Errorf("question not forwarded: %+v", a.question)
	}
	if rr.Header().Get("X-Embedding-Tokens") != "12" || rr.Header().Get("X-Completion-Tokens") != "300" {
		t.Errorf("unexpected usage headers %v", rr.Header())
	}
	if rr.Header().Get("X-Model-Calls") != "1" {
		t.Errorf("expected 1 model call, got %q", rr.Header().Get("X-Model-Calls"))
	}
}

func TestAsk_InvalidBody(t *testing.T) {
	rr := do(t, newRouter(&mockAsker{}, &mockFeedback{}, &mockHealth{}), http.MethodPost, "/v1/ask", `{`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != ErrorCodeBadRequest {
		t.Errorf("expected bad_request, got %s", e.Code)
	}
}

func TestAsk_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   ErrorCode
	}{
		{domain.ErrEmptyQuery, http.StatusBadRequest, ErrorCodeValidationFailed},
		{fmt.Errorf("wrap: %w", domain.ErrRateLimited), http.StatusTooManyRequests, ErrorCodeRateLimited},
		{domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProviderError},
		{domain.ErrCompletionProviderError, http.StatusBadGateway, ErrorCodeCompletionProviderError},
		{domain.ErrIndexMismatch, http.StatusServiceUnavailable, ErrorCodeStoreUnavailable},
		{errors.New("secret detail"), http.StatusInternalServerError, ErrorCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			h := newRouter(&mockAsker{err: tt.err}, &mockFeedback{}, &mockHealth{})
			rr := do(t, h, http.MethodPost, "/v1/ask", `{"question":"q"}`)
			if rr.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rr.Code)
			}
			e := decodeError(t, rr)
			if e.Code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, e.Code)
			}
			if strings.Contains(e.Message, "secret") {
				t.Errorf("internal detail leaked: %q", e.Message)
			}
		})
	}
}

func TestSearchTextNorms(t *testing.T) {
	a := &mockAsker{texts: []norm.Text{sampleText()}}
	h := newRouter(a, &mockFeedback{}, &mockHealth{})

	q := url.Values{}
	q.Set("q", "высота")
	q.Set("top_k", "7")
	q.Set("applies_to", "спальня")
	q.Add("domain", "эвакуация,инсоляция")
	q.Add("source", "A")
	q.Add("source", "B")
	rr := do(t, h, http.MethodGet, "/v1/norms/text/search?"+q.Encode(), "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body)
	}
	var resp SearchResponse[TextNorm]
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Items[0].FullID != "СП РК Жилые здания:4.2" {
		t.Errorf("unexpected response %+v", resp)
	}
	got := a.textQuery
	if got.Query != "высота" || got.TopK != 7 || got.AppliesTo != "спальня" {
		t.Errorf("unexpected query %+v", got)
	}
	if len(got.Domains) != 2 || len(got.Sources) != 2 {
		t.Errorf("expected 2 domains and 2 sources, got %v / %v", got.Domains, got.Sources)
	}
}

func TestSearchTextNorms_MissingQ(t *testing.T) {
	rr := do(t, newRouter(&mockAsker{}, &mockFeedback{}, &mockHealth{}), http.MethodGet, "/v1/norms/text/search", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestSearchTextNorms_BadTopK(t *testing.T) {
	rr := do(t, newRouter(&mockAsker{}, &mockFeedback{}, &mockHealth{}), http.MethodGet,
		"/v1/norms/text/search?q=x&top_k=many", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestSearchTableNorms(t *testing.T) {
	a := &mockAsker{tables: []norm.Table{norm.ReconstructTable("h", map[string]string{"I": "1"}, "A", "A:h")}}
	h := newRouter(a, &mockFeedback{}, &mockHealth{})

	rr := do(t, h, http.MethodGet, "/v1/norms/table/search?q=h&source=A", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if a.tableQ.Query != "h" || len(a.tableQ.Sources) != 1 {
		t.Errorf("unexpected query %+v", a.tableQ)
	}
}

func TestGetNorm(t *testing.T) {
	a := &mockAsker{norm: sampleText()}
	h := newRouter(a, &mockFeedback{}, &mockHealth{})

	rr := do(t, h, http.MethodGet, "/v1/norms/"+url.PathEscape("СН РК 3.02-01/2018:4.2"), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if a.normID != "СН РК 3.02-01/2018:4.2" {
		t.Errorf("unexpected id %q", a.normID)
	}
}

func TestGetNorm_NotFound(t *testing.T) {
	h := newRouter(&mockAsker{err: domain.ErrNotFound}, &mockFeedback{}, &mockHealth{})
	rr := do(t, h, http.MethodGet, "/v1/norms/9.9", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != ErrorCodeNormNotFound {
		t.Errorf("expected norm_not_found, got %s", e.Code)
	}
}

func TestSubmitFeedback(t *testing.T) {
	f := &mockFeedback{}
	h := newRouter(&mockAsker{}, f, &mockHealth{})

	rr := do(t, h, http.MethodPost, "/v1/feedback", `{"question":"q","answer":"a","norm_ids":["A:1"],"score":0}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if f.calls != 1 || f.score != 0 {
		t.Errorf("unexpected submit calls=%d score=%d", f.calls, f.score)
	}
}

func TestSubmitFeedback_Invalid(t *testing.T) {
	f := &mockFeedback{err: domain.ErrInvalidFeedback}
	h := newRouter(&mockAsker{}, f, &mockHealth{})

	rr := do(t, h, http.MethodPost, "/v1/feedback", `{"question":"q","answer":"","norm_ids":[],"score":1}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/v1/feedback", `{"question":"q","answer":"a","norm_ids":["A:1"]}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing score: expected 400, got %d", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusServiceUnavailable},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			hc := &mockHealth{report: healthuc.Report{
				Status: tt.status,
				Checks: map[string]healthuc.CheckResult{"llm": healthuc.CheckOK},
			}}
			rr := do(t, newRouter(&mockAsker{}, &mockFeedback{}, hc), http.MethodGet, "/health", "")
			if rr.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rr.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != string(tt.status) || resp.Checks["llm"] != "ok" {
				t.Errorf("unexpected body %+v", resp)
			}
		})
	}
}
