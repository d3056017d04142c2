package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/kailas-cloud/normrag/internal/domain/feedback"
)

const schema = `
CREATE TABLE IF NOT EXISTS feedback (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    norm_ids TEXT NOT NULL,
    score INTEGER NOT NULL CHECK (score IN (0, 1)),
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_created ON feedback(created_at);
`

// SQLiteSink appends feedback rows to an SQLite database (WAL mode).
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database at path.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open feedback database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init feedback schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Append inserts r. norm_ids are stored as a JSON array.
func (s *SQLiteSink) Append(ctx context.Context, r feedback.Record) error {
	d := toDTO(r)
	ids, err := json.Marshal(d.NormIDs)
	if err != nil {
		return fmt.Errorf("encode norm ids: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO feedback (question, answer, norm_ids, score, created_at) VALUES (?, ?, ?, ?, ?)",
		d.Question, d.Answer, string(ids), d.Score, d.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// Count returns the number of stored rows.
func (s *SQLiteSink) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback").Scan(&n); err != nil {
		return 0, fmt.Errorf("count feedback: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
