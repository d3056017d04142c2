package feedback

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/normrag/internal/domain"
)

// Score values.
const (
	ScoreBad  = 0
	ScoreGood = 1
)

// Record is one user quality rating of an answer (append-only).
type Record struct {
	question  string
	answer    string
	normIDs   []string
	score     int
	timestamp time.Time
}

// New validates and creates a feedback record.
// Question, answer and at least one norm id are required; score must be 0 or 1.
func New(question, answer string, normIDs []string, score int, at time.Time) (Record, error) {
	if strings.TrimSpace(question) == "" {
		return Record{}, fmt.Errorf("question is required: %w", domain.ErrInvalidFeedback)
	}
	if strings.TrimSpace(answer) == "" {
		return Record{}, fmt.Errorf("answer is required: %w", domain.ErrInvalidFeedback)
	}
	ids := make([]string, 0, len(normIDs))
	for _, id := range normIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return Record{}, fmt.Errorf("norm_ids are required: %w", domain.ErrInvalidFeedback)
	}
	if score != ScoreBad && score != ScoreGood {
		return Record{}, fmt.Errorf("score %d out of range {0,1}: %w", score, domain.ErrInvalidFeedback)
	}
	return Record{question: question, answer: answer, normIDs: ids, score: score, timestamp: at.UTC()}, nil
}

// Question returns the asked question.
func (r Record) Question() string { return r.question }

// Answer returns the rated answer.
func (r Record) Answer() string { return r.answer }

// NormIDs returns the full_ids of the norms shown with the answer.
func (r Record) NormIDs() []string { return r.normIDs }

// Score returns 1 for a good answer, 0 for a bad one.
func (r Record) Score() int { return r.score }

// Timestamp returns the UTC time the rating was recorded.
func (r Record) Timestamp() time.Time { return r.timestamp }
