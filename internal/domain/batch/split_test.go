package batch

import (
	"slices"
	"testing"
)

func collect[T any](items []T, size int) [][]T {
	var out [][]T
	for b := range Split(items, size) {
		out = append(out, b)
	}
	return out
}

func TestSplit_ConcatenationReproducesInput(t *testing.T) {
	for n := 0; n <= 20; n++ {
		items := make([]int, n)
		for i := range items {
			items[i] = i
		}
		for size := 1; size <= 9; size++ {
			batches := collect(items, size)
			var joined []int
			for _, b := range batches {
				if len(b) == 0 {
					t.Fatalf("n=%d size=%d: empty batch", n, size)
				}
				if len(b) > size {
					t.Fatalf("n=%d size=%d: batch of %d", n, size, len(b))
				}
				joined = append(joined, b...)
			}
			if !slices.Equal(joined, items) {
				t.Fatalf("n=%d size=%d: joined = %v", n, size, joined)
			}
		}
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	if got := collect([]string{}, 3); len(got) != 0 {
		t.Errorf("got %d batches, want 0", len(got))
	}
}

func TestSplit_SizeBelowOne(t *testing.T) {
	got := collect([]string{"a", "b"}, 0)
	if len(got) != 2 {
		t.Errorf("got %d batches, want 2", len(got))
	}
}

func TestSplit_EarlyStop(t *testing.T) {
	n := 0
	for range Split([]int{1, 2, 3, 4, 5}, 2) {
		n++
		break
	}
	if n != 1 {
		t.Errorf("iterations = %d, want 1", n)
	}
}

func TestSplit_BatchAppendDoesNotClobber(t *testing.T) {
	items := []int{1, 2, 3, 4}
	batches := collect(items, 2)
	_ = append(batches[0], 99)
	if items[2] != 3 {
		t.Errorf("append through batch overwrote input: %v", items)
	}
}

func TestStrategy_Size(t *testing.T) {
	tests := []struct {
		s     Strategy
		n     int
		fixed int
		want  int
	}{
		{StrategyHalves, 0, 0, 1},
		{StrategyHalves, 1, 0, 1},
		{StrategyHalves, 7, 0, 3},
		{StrategyHalves, 10, 0, 5},
		{StrategyFixed, 100, 8, 8},
		{StrategyFixed, 100, 0, DefaultFixedSize},
	}
	for _, tt := range tests {
		if got := tt.s.Size(tt.n, tt.fixed); got != tt.want {
			t.Errorf("%s.Size(%d, %d) = %d, want %d", tt.s, tt.n, tt.fixed, got, tt.want)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	if s, err := ParseStrategy("halves"); err != nil || s != StrategyHalves {
		t.Errorf("ParseStrategy(halves) = %q, %v", s, err)
	}
	if _, err := ParseStrategy("thirds"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
