// Package ingest holds the offline single-writer steps: merging freshly
// extracted norms into a collection and rebuilding its vector index.
package ingest

import (
	"strings"

	"github.com/kailas-cloud/normrag/internal/domain/norm"
	"github.com/kailas-cloud/normrag/internal/repository/normstore"
)

// Identified is implemented by both norm kinds.
type Identified interface {
	FullID() string
}

// MergeStats reports what a merge did.
type MergeStats struct {
	Existing int
	Added    int
	Skipped  int
}

// MergeByFullID appends incoming records whose full_id is not yet present.
// Existing rows keep their positions; the first incoming record wins among
// duplicates. Merging the same batch twice is a no-op.
func MergeByFullID[T Identified](existing, incoming []T) ([]T, MergeStats) {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.FullID()] = struct{}{}
	}

	out := make([]T, len(existing), len(existing)+len(incoming))
	copy(out, existing)
	stats := MergeStats{Existing: len(existing)}
	for _, r := range incoming {
		if _, ok := seen[r.FullID()]; ok {
			stats.Skipped++
			continue
		}
		seen[r.FullID()] = struct{}{}
		out = append(out, r)
		stats.Added++
	}
	return out, stats
}

// CarryForwardIndicators turns raw table rows into table norms. A row without an
// indicator inherits the last indicator seen in the same source; rows that
// end up without an indicator or without values are dropped.
func CarryForwardIndicators(rows []normstore.TableRow) ([]norm.Table, int) {
	out := make([]norm.Table, 0, len(rows))
	var prevSource, prevIndicator string
	dropped := 0
	for _, r := range rows {
		source := strings.TrimSpace(r.Source)
		if source != prevSource {
			prevSource, prevIndicator = source, ""
		}
		indicator := strings.TrimSpace(r.Indicator)
		if indicator == "" {
			indicator = prevIndicator
		} else {
			prevIndicator = indicator
		}

		t, err := norm.NewTable(indicator, r.Values, source, r.FullID)
		if err != nil {
			dropped++
			continue
		}
		out = append(out, t)
	}
	return out, dropped
}
