package normstore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/normrag/internal/domain/norm"
)

// LoadStats reports how many records were read and how many were rejected.
type LoadStats struct {
	Read    int
	Invalid int
}

// LoadTextNorms reads a JSON array of text norms. Invalid records are skipped and counted.
func LoadTextNorms(path string) ([]norm.Text, LoadStats, error) {
	var dtos []textDTO
	if err := readJSON(path, &dtos); err != nil {
		return nil, LoadStats{}, err
	}
	stats := LoadStats{Read: len(dtos)}
	out := make([]norm.Text, 0, len(dtos))
	for _, d := range dtos {
		n, err := d.toDomain()
		if err != nil {
			stats.Invalid++
			continue
		}
		out = append(out, n)
	}
	return out, stats, nil
}

// ReadTableRows reads a JSON array of raw table rows without validation.
func ReadTableRows(path string) ([]TableRow, error) {
	var rows []TableRow
	if err := readJSON(path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// LoadTableNorms reads a JSON array of table norms. Invalid records are skipped and counted.
func LoadTableNorms(path string) ([]norm.Table, LoadStats, error) {
	rows, err := ReadTableRows(path)
	if err != nil {
		return nil, LoadStats{}, err
	}
	stats := LoadStats{Read: len(rows)}
	out := make([]norm.Table, 0, len(rows))
	for _, r := range rows {
		n, err := r.toDomain()
		if err != nil {
			stats.Invalid++
			continue
		}
		out = append(out, n)
	}
	return out, stats, nil
}

// SaveTextNorms writes text norms as an indented JSON array, atomically.
func SaveTextNorms(path string, norms []norm.Text) error {
	dtos := make([]textDTO, len(norms))
	for i, n := range norms {
		dtos[i] = textFromDomain(n)
	}
	return writeJSON(path, dtos)
}

// SaveTableNorms writes table norms as an indented JSON array, atomically.
func SaveTableNorms(path string, norms []norm.Table) error {
	rows := make([]TableRow, len(norms))
	for i, n := range norms {
		rows[i] = tableFromDomain(n)
	}
	return writeJSON(path, rows)
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config or CLI flags
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := encodeJSON(tmp, v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
