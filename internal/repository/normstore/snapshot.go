package normstore

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/normrag/internal/domain"
	"github.com/kailas-cloud/normrag/internal/domain/norm"
	"github.com/kailas-cloud/normrag/internal/vectorindex"
)

// Paths locates the two persisted collections and their indexes.
type Paths struct {
	TextNorms  string
	TextIndex  string
	TableNorms string
	TableIndex string
}

// Files returns all configured paths.
func (p Paths) Files() []string {
	var out []string
	for _, f := range []string{p.TextNorms, p.TextIndex, p.TableNorms, p.TableIndex} {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Snapshot is an immutable (collection, index) pair for both norm kinds.
// A query takes one snapshot and uses it throughout.
type Snapshot struct {
	Text     *Collection[norm.Text]
	Table    *Collection[norm.Table]
	Stats    map[string]LoadStats
	LoadedAt time.Time
}

// Aligned reports whether both collections match their indexes row for row.
func (s *Snapshot) Aligned() bool {
	return s.Text.Aligned() && s.Table.Aligned()
}

// Validate returns domain.ErrIndexMismatch describing the first misaligned collection.
func (s *Snapshot) Validate() error {
	if !s.Text.Aligned() {
		return fmt.Errorf("text: %d records, %d index rows: %w",
			s.Text.Len(), s.Text.IndexLen(), domain.ErrIndexMismatch)
	}
	if !s.Table.Aligned() {
		return fmt.Errorf("table: %d records, %d index rows: %w",
			s.Table.Len(), s.Table.IndexLen(), domain.ErrIndexMismatch)
	}
	return nil
}

// FindText looks a text norm up by full_id, falling back to the local id.
func (s *Snapshot) FindText(id string) (norm.Text, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return norm.Text{}, fmt.Errorf("norm id is required: %w", domain.ErrNotFound)
	}
	records := s.Text.Records()
	for _, n := range records {
		if n.FullID() == id {
			return n, nil
		}
	}
	for _, n := range records {
		if n.ID() == id {
			return n, nil
		}
	}
	return norm.Text{}, fmt.Errorf("norm %q: %w", id, domain.ErrNotFound)
}

// Empty returns a snapshot with no records.
func Empty() *Snapshot {
	return &Snapshot{
		Text:     NewCollection[norm.Text](nil, nil),
		Table:    NewCollection[norm.Table](nil, nil),
		LoadedAt: time.Now(),
	}
}

// Load reads both collections and their indexes. A kind whose norm path is empty loads as empty.
// Alignment is not enforced here; callers decide via Aligned.
func Load(p Paths) (*Snapshot, error) {
	s := Empty()
	s.Stats = make(map[string]LoadStats, 2)

	if p.TextNorms != "" {
		records, stats, err := LoadTextNorms(p.TextNorms)
		if err != nil {
			return nil, fmt.Errorf("load text norms: %w", err)
		}
		idx, err := vectorindex.ReadFile(p.TextIndex)
		if err != nil {
			return nil, fmt.Errorf("load text index: %w", err)
		}
		s.Text = NewCollection(records, idx)
		s.Stats["text"] = stats
	}

	if p.TableNorms != "" {
		records, stats, err := LoadTableNorms(p.TableNorms)
		if err != nil {
			return nil, fmt.Errorf("load table norms: %w", err)
		}
		idx, err := vectorindex.ReadFile(p.TableIndex)
		if err != nil {
			return nil, fmt.Errorf("load table index: %w", err)
		}
		s.Table = NewCollection(records, idx)
		s.Stats["table"] = stats
	}

	return s, nil
}

// Holder publishes the active snapshot. Swaps replace both collections as a unit.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder creates a holder with an initial snapshot.
func NewHolder(s *Snapshot) *Holder {
	h := &Holder{}
	if s == nil {
		s = Empty()
	}
	h.current.Store(s)
	return h
}

// Current returns the active snapshot. Take it once per query.
func (h *Holder) Current() *Snapshot { return h.current.Load() }

// Swap installs s and returns the previous snapshot.
func (h *Holder) Swap(s *Snapshot) *Snapshot { return h.current.Swap(s) }

// HealthCheck fails when the active snapshot is misaligned or holds no norms at all.
func (h *Holder) HealthCheck(_ context.Context) error {
	s := h.Current()
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Text.Len() == 0 && s.Table.Len() == 0 {
		return fmt.Errorf("norm store is empty: %w", domain.ErrNotFound)
	}
	return nil
}
