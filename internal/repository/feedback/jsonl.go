// Package feedback persists user ratings to an append-only sink.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kailas-cloud/normrag/internal/domain/feedback"
)

type recordDTO struct {
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	NormIDs   []string `json:"norm_ids"`
	Score     int      `json:"score"`
	Timestamp string   `json:"timestamp"`
}

func toDTO(r feedback.Record) recordDTO {
	return recordDTO{
		Question:  r.Question(),
		Answer:    r.Answer(),
		NormIDs:   r.NormIDs(),
		Score:     r.Score(),
		Timestamp: r.Timestamp().Format(time.RFC3339Nano),
	}
}

// JSONLSink appends one JSON object per line to a file.
type JSONLSink struct {
	mu   sync.Mutex
	path string
}

// NewJSONLSink creates the parent directory if needed.
func NewJSONLSink(path string) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create feedback dir: %w", err)
	}
	return &JSONLSink{path: path}, nil
}

// Append writes r as a single line. Appends are serialized.
func (s *JSONLSink) Append(_ context.Context, r feedback.Record) error {
	line, err := json.Marshal(toDTO(r))
	if err != nil {
		return fmt.Errorf("encode feedback: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open feedback log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("write feedback: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close feedback log: %w", err)
	}
	return nil
}

// Close is a no-op; the file is opened per append.
func (s *JSONLSink) Close() error { return nil }
