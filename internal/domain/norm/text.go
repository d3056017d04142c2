package norm

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/normrag/internal/domain"
)

// TextFields carries the raw attributes of a free-text norm.
type TextFields struct {
	ID          string
	FullID      string
	Source      string
	Domain      string
	AppliesTo   []string
	Text        string
	Requirement string
	Check       string
	Condition   string
}

// Text is a free-text building-code provision (immutable value object).
type Text struct {
	id          string
	fullID      string
	source      string
	domain      string
	appliesTo   []string
	text        string
	requirement string
	check       string
	condition   string
}

// NewText validates and creates a Text norm.
// ID, source and text are required. FullID is derived as source:id when empty;
// a non-empty FullID is kept as-is and never recomputed.
func NewText(f TextFields) (Text, error) {
	id := strings.TrimSpace(f.ID)
	source := strings.TrimSpace(f.Source)
	if id == "" {
		return Text{}, fmt.Errorf("text norm id is required: %w", domain.ErrInvalidNorm)
	}
	if source == "" {
		return Text{}, fmt.Errorf("text norm %q: source is required: %w", id, domain.ErrInvalidNorm)
	}
	if strings.TrimSpace(f.Text) == "" {
		return Text{}, fmt.Errorf("text norm %q: text is required: %w", id, domain.ErrInvalidNorm)
	}

	fullID := f.FullID
	if fullID == "" {
		fullID = FullID(source, id)
	}

	return Text{
		id:          id,
		fullID:      fullID,
		source:      source,
		domain:      f.Domain,
		appliesTo:   cloneStrings(f.AppliesTo),
		text:        f.Text,
		requirement: f.Requirement,
		check:       f.Check,
		condition:   f.Condition,
	}, nil
}

// ReconstructText creates a Text norm without validation (storage hydration, tests).
func ReconstructText(f TextFields) Text {
	return Text{
		id: f.ID, fullID: f.FullID, source: f.Source, domain: f.Domain,
		appliesTo: f.AppliesTo, text: f.Text,
		requirement: f.Requirement, check: f.Check, condition: f.Condition,
	}
}

// FullID builds the global norm identifier "source:id".
func FullID(source, id string) string { return source + ":" + id }

// ID returns the local identifier within the source document (e.g. "4.2.7").
func (t Text) ID() string { return t.id }

// FullID returns the globally unique identifier.
func (t Text) FullID() string { return t.fullID }

// Source returns the source document tag(s), comma-joined.
func (t Text) Source() string { return t.source }

// Domain returns the discipline tag(s), comma-joined.
func (t Text) Domain() string { return t.domain }

// AppliesTo returns the space types the norm governs.
func (t Text) AppliesTo() []string { return t.appliesTo }

// Text returns the provision text.
func (t Text) Text() string { return t.text }

// Requirement returns the optional extracted requirement.
func (t Text) Requirement() string { return t.requirement }

// Check returns the optional checklist wording.
func (t Text) Check() string { return t.check }

// Condition returns the optional applicability condition.
func (t Text) Condition() string { return t.condition }

// Fields returns the raw attributes (used by persistence).
func (t Text) Fields() TextFields {
	return TextFields{
		ID: t.id, FullID: t.fullID, Source: t.source, Domain: t.domain,
		AppliesTo: t.appliesTo, Text: t.text,
		Requirement: t.requirement, Check: t.check, Condition: t.condition,
	}
}

// EmbeddingText is the text indexed for this norm: text, requirement and check joined.
func (t Text) EmbeddingText() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{t.text, t.requirement, t.check} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}
