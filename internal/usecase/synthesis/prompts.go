package synthesis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/normrag/internal/domain/norm"
)

// Fixed user-facing messages.
const (
	NoDataMessage             = "❗ Нормативы не переданы, проверка невозможна."
	NothingToSummarizeMessage = "❗ Нет промежуточных ответов для суммирования."
	ModelErrorPrefix          = "❌ Ошибка при вызове модели: "
	EmptyResponseMessage      = "❌ Пустой ответ от модели"
)

// DefaultJurisdiction restricts the summary to Kazakhstan building codes.
const DefaultJurisdiction = "КРИТИЧНО ВАЖНО чтобы он использовал нормы только Республики Казахстана." +
	"Не используй Снпы или Россиские нормы."

const (
	questionHeader = "Вопрос архитектора:\n"

	categorizedFooter = "\nНа основе только этих нормативов, дай краткий, полезный и понятный ответ " +
		"архитектору на русском языке.Документ который ты читаешь %s.КРИТИЧНО ВАЖНО ИСПОЛЬЗУЙ ТОЛЬКО " +
		"представленные нормы не бери данные со своей базы. Там указывается полный пункт к нормам " +
		"используй их когда будешь писать ответ"

	combinedIntro  = "Нормы на которые ты должен проверить"
	combinedFooter = "\n\nНа основе этих нормативов,полезный и понятный ответ архитектору на русском языке." +
		"КРИТИЧНО ВАЖНО  ИСПОЛЬЗУЙ ТОЛЬКО представленные нормы не бери данные со своей баззы "

	summaryRole = "Ты — помощник архитектора."
	summaryTask = "Твоя задача — дать краткий, чёткий и достоверный вывод по результатам нескольких " +
		"источников.Там указывается пункт к нормам используй их когда будешь писать ответ\n"
	summaryFooter = "**📌 Сформулируй итоговый ответ, чётко указав нормы по каждому типу объекта.**"
)

// FormatText renders a text norm as "full_id- text".
func FormatText(n norm.Text) string {
	return strings.TrimSpace(n.FullID()) + "- " + strings.TrimSpace(n.Text())
}

// FormatTable renders a table norm as an indicator header with one line per class.
func FormatTable(n norm.Table) string {
	var b strings.Builder
	b.WriteString("◾ " + n.Indicator() + ":\n")
	values := n.Values()
	for _, cls := range n.Classes() {
		fmt.Fprintf(&b, "   - %s: %s\n", cls, values[cls])
	}
	return strings.TrimSpace(b.String())
}

// CategorizedPrompt builds a batch prompt with norms grouped by object category.
// Text and table sections are emitted only for non-empty inputs.
func CategorizedPrompt(question string, texts []norm.Text, tables []norm.Table, sources []string) string {
	parts := []string{questionHeader + strings.TrimSpace(question)}

	for _, g := range norm.GroupByCategory(texts) {
		parts = append(parts, fmt.Sprintf("📜 %s (Текстовые нормы):\n%s", g.Category, joinFormatted(g.Items, FormatText, "\n")))
	}
	for _, g := range norm.GroupByCategory(tables) {
		parts = append(parts, fmt.Sprintf("📊 %s (Табличные нормы):\n%s", g.Category, joinFormatted(g.Items, FormatTable, "\n\n")))
	}

	parts = append(parts, fmt.Sprintf(categorizedFooter, strings.Join(sources, ", ")))
	return strings.Join(parts, "\n\n")
}

// CombinedPrompt builds a batch prompt with table and text norms in two flat sections.
func CombinedPrompt(question string, texts []norm.Text, tables []norm.Table) string {
	var parts []string
	if len(tables) > 0 {
		parts = append(parts, "📊 Табличные нормы:\n"+joinFormatted(tables, FormatTable, "\n\n"))
	}
	if len(texts) > 0 {
		parts = append(parts, "📜 Текстовые нормы:\n"+joinFormatted(texts, FormatText, "\n"))
	}
	return questionHeader + strings.TrimSpace(question) + "\n\n" +
		combinedIntro + strings.Join(parts, "\n\n") + combinedFooter
}

// SummaryPrompt builds the consolidation prompt. Partial answers are labelled
// "Ответ N" in the order given.
func SummaryPrompt(question string, partials []string, jurisdiction string) string {
	answers := make([]string, len(partials))
	for i, p := range partials {
		answers[i] = fmt.Sprintf("Ответ %d:\n%s", i+1, p)
	}
	return summaryRole + jurisdiction + "\n\n" +
		summaryTask +
		questionHeader + strings.TrimSpace(question) + "\n\n" +
		strings.Join(answers, "\n\n") + "\n\n" +
		summaryFooter
}

// StripReasoning removes <tag>...</tag> blocks for every tag and trims the result.
func StripReasoning(text string, tags ...string) string {
	for _, tag := range tags {
		text = reasoningPattern(tag).ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

func reasoningPattern(tag string) *regexp.Regexp {
	q := regexp.QuoteMeta(tag)
	return regexp.MustCompile(`(?s)<` + q + `>.*?</` + q + `>`)
}

func joinFormatted[T any](items []T, format func(T) string, sep string) string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = format(it)
	}
	return strings.Join(out, sep)
}
