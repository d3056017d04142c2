package batch

import (
	"fmt"
	"iter"
)

// DefaultFixedSize is the batch size of the fixed strategy.
const DefaultFixedSize = 8

// Split yields consecutive slices of at most size items, preserving input order.
// The last batch may be shorter. No batch is empty; a size below 1 is treated as 1.
// Yielded slices share the backing array of items.
func Split[T any](items []T, size int) iter.Seq[[]T] {
	if size < 1 {
		size = 1
	}
	return func(yield func([]T) bool) {
		for start := 0; start < len(items); start += size {
			end := min(start+size, len(items))
			if !yield(items[start:end:end]) {
				return
			}
		}
	}
}

// Strategy picks the batch size for a synthesis run.
type Strategy string

// Sizing strategies.
const (
	// StrategyHalves splits each set into about two batches: max(1, n/2).
	StrategyHalves Strategy = "halves"
	// StrategyFixed uses a constant batch size.
	StrategyFixed Strategy = "fixed"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyHalves, StrategyFixed:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown batch strategy %q (want halves|fixed)", s)
	}
}

// Size returns the batch size for n items. fixed is used by StrategyFixed;
// values below 1 fall back to DefaultFixedSize.
func (s Strategy) Size(n, fixed int) int {
	if s == StrategyFixed {
		if fixed < 1 {
			return DefaultFixedSize
		}
		return fixed
	}
	return max(1, n/2)
}
