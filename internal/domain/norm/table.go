package norm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/normrag/internal/domain"
)

// Table is one indicator row of a class table: indicator → {class label → value}.
type Table struct {
	indicator string
	values    map[string]string
	source    string
	fullID    string
}

// NewTable validates and creates a Table norm.
// Indicator, source and at least one value are required; FullID is derived as
// source:indicator when empty.
func NewTable(indicator string, values map[string]string, source, fullID string) (Table, error) {
	indicator = strings.TrimSpace(indicator)
	source = strings.TrimSpace(source)
	if indicator == "" {
		return Table{}, fmt.Errorf("table norm indicator is required: %w", domain.ErrInvalidNorm)
	}
	if source == "" {
		return Table{}, fmt.Errorf("table norm %q: source is required: %w", indicator, domain.ErrInvalidNorm)
	}

	cleaned := make(map[string]string, len(values))
	for k, v := range values {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			cleaned[k] = v
		}
	}
	if len(cleaned) == 0 {
		return Table{}, fmt.Errorf("table norm %q: values are required: %w", indicator, domain.ErrInvalidNorm)
	}

	if fullID == "" {
		fullID = FullID(source, indicator)
	}
	return Table{indicator: indicator, values: cleaned, source: source, fullID: fullID}, nil
}

// ReconstructTable creates a Table norm without validation (storage hydration, tests).
func ReconstructTable(indicator string, values map[string]string, source, fullID string) Table {
	return Table{indicator: indicator, values: values, source: source, fullID: fullID}
}

// Indicator returns the row indicator.
func (t Table) Indicator() string { return t.indicator }

// Values returns the class → value mapping.
func (t Table) Values() map[string]string { return t.values }

// Source returns the source document.
func (t Table) Source() string { return t.source }

// FullID returns the globally unique identifier.
func (t Table) FullID() string { return t.fullID }

// AppliesTo is always empty for table norms.
func (t Table) AppliesTo() []string { return nil }

// Classes returns the class labels in sorted order.
func (t Table) Classes() []string {
	keys := make([]string, 0, len(t.values))
	for k := range t.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValuesKey is the canonical serialization of values (JSON, keys sorted).
func (t Table) ValuesKey() string {
	data, err := json.Marshal(t.values)
	if err != nil {
		return ""
	}
	return string(data)
}

// EmbeddingText is the text indexed for this row: indicator followed by "class: value" pairs.
func (t Table) EmbeddingText() string {
	var b strings.Builder
	b.WriteString(t.indicator)
	for _, k := range t.Classes() {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(t.values[k])
	}
	return b.String()
}
