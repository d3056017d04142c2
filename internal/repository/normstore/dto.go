package normstore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/normrag/internal/domain/norm"
)

// tagList accepts either a JSON list or a comma-joined string.
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = norm.NormalizeTagList([]string{s})
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("tag list must be a string or a list of strings: %w", err)
	}
	*t = norm.NormalizeTagList(list)
	return nil
}

// joinedField accepts either a string or a list, stored comma-joined.
type joinedField string

func (j *joinedField) UnmarshalJSON(data []byte) error {
	var tags tagList
	if err := tags.UnmarshalJSON(data); err != nil {
		return err
	}
	*j = joinedField(strings.Join(tags, ", "))
	return nil
}

type textDTO struct {
	ID          string      `json:"id"`
	FullID      string      `json:"full_id,omitempty"`
	Source      joinedField `json:"source"`
	Domain      joinedField `json:"domain,omitempty"`
	AppliesTo   tagList     `json:"applies_to,omitempty"`
	Text        string      `json:"text"`
	Requirement string      `json:"requirement,omitempty"`
	Check       string      `json:"check,omitempty"`
	Condition   string      `json:"condition,omitempty"`
}

func (d textDTO) toDomain() (norm.Text, error) {
	return norm.NewText(norm.TextFields{
		ID:          d.ID,
		FullID:      d.FullID,
		Source:      string(d.Source),
		Domain:      string(d.Domain),
		AppliesTo:   d.AppliesTo,
		Text:        d.Text,
		Requirement: d.Requirement,
		Check:       d.Check,
		Condition:   d.Condition,
	})
}

func textFromDomain(n norm.Text) textDTO {
	f := n.Fields()
	return textDTO{
		ID:          f.ID,
		FullID:      f.FullID,
		Source:      joinedField(f.Source),
		Domain:      joinedField(f.Domain),
		AppliesTo:   f.AppliesTo,
		Text:        f.Text,
		Requirement: f.Requirement,
		Check:       f.Check,
		Condition:   f.Condition,
	}
}

// TableRow is a raw extracted table row. Indicator may be empty when the row
// continues the block of a preceding indicator.
type TableRow struct {
	Indicator string            `json:"indicator"`
	Values    map[string]string `json:"values"`
	Source    string            `json:"source"`
	FullID    string            `json:"full_id,omitempty"`
}

func (r TableRow) toDomain() (norm.Table, error) {
	return norm.NewTable(r.Indicator, r.Values, r.Source, r.FullID)
}

func tableFromDomain(n norm.Table) TableRow {
	return TableRow{
		Indicator: n.Indicator(),
		Values:    n.Values(),
		Source:    n.Source(),
		FullID:    n.FullID(),
	}
}
