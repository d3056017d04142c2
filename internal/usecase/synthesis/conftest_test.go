package synthesis

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kailas-cloud/normrag/internal/domain"
	"github.com/kailas-cloud/normrag/internal/domain/norm"
)

// --- Mocks ---

// mockCompleter answers batch prompts with respond and records every prompt.
// Summary prompts are recognised by their footer and answered with summary.
type mockCompleter struct {
	mu       sync.Mutex
	prompts  []string
	summary  string
	respond  func(prompt string) (string, error)
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (m *mockCompleter) Complete(_ context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, req.Prompt)
	m.mu.Unlock()

	if isSummary(req.Prompt) {
		return domain.CompletionResult{Text: m.summary}, nil
	}

	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		seen := m.maxSeen.Load()
		if n <= seen || m.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if m.respond == nil {
		return domain.CompletionResult{Text: "ok"}, nil
	}
	text, err := m.respond(req.Prompt)
	if err != nil {
		return domain.CompletionResult{}, err
	}
	return domain.CompletionResult{Text: text}, nil
}

func (m *mockCompleter) batchPrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, p := range m.prompts {
		if !isSummary(p) {
			out = append(out, p)
		}
	}
	return out
}

func (m *mockCompleter) summaryPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.prompts {
		if isSummary(p) {
			return p
		}
	}
	return ""
}

func isSummary(prompt string) bool { return strings.HasSuffix(prompt, summaryFooter) }

// --- Fixtures ---

func textNorm(id, source string, applies ...string) norm.Text {
	return norm.ReconstructText(norm.TextFields{
		ID:        id,
		FullID:    norm.FullID(source, id),
		Source:    source,
		AppliesTo: applies,
		Text:      "текст " + id,
	})
}

func tableNorm(indicator, source string, values map[string]string) norm.Table {
	return norm.ReconstructTable(indicator, values, source, source+":"+indicator)
}

func textNorms(source string, n int) []norm.Text {
	out := make([]norm.Text, n)
	for i := range n {
		out[i] = textNorm(string(rune('a'+i)), source)
	}
	return out
}
