package retrieval

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/normrag/internal/domain"
	"github.com/kailas-cloud/normrag/internal/domain/norm"
)

func TestTableRetrieve_ExactSourceMatch(t *testing.T) {
	idx := &fakeTableIndex{ranked: []norm.Table{
		tableNorm("Высота потолка", "СП РК 3.02-101"),
		tableNorm("Площадь кухни", "СП РК 3.02-101-2012"),
		tableNorm("Ширина коридора", " сп рк 3.02-101"),
	}}
	r := NewTableRetriever(&fakeEmbedder{}, Options{}, zap.NewNop())

	got, err := r.Retrieve(context.Background(), idx, TableQuery{Query: "q", Sources: []string{"СП РК 3.02-101"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Indicator() != "Высота потолка" || got[1].Indicator() != "Ширина коридора" {
		t.Errorf("unexpected order: %s, %s", got[0].Indicator(), got[1].Indicator())
	}
}

func TestTableRetrieve_NoMatchIsEmpty(t *testing.T) {
	idx := &fakeTableIndex{ranked: []norm.Table{tableNorm("Высота", "A")}}
	r := NewTableRetriever(&fakeEmbedder{}, Options{}, zap.NewNop())

	got, err := r.Retrieve(context.Background(), idx, TableQuery{Query: "q", Sources: []string{"B"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no rows, got %d", len(got))
	}
}

func TestTableRetrieve_OverfetchAndStop(t *testing.T) {
	var ranked []norm.Table
	for _, ind := range []string{"a", "b", "c", "d"} {
		ranked = append(ranked, tableNorm(ind, "A"))
	}
	idx := &fakeTableIndex{ranked: ranked}
	r := NewTableRetriever(&fakeEmbedder{}, Options{}, zap.NewNop())

	got, _ := r.Retrieve(context.Background(), idx, TableQuery{Query: "q", TopK: 2})
	if idx.gotK != 10 {
		t.Errorf("expected over-fetch of 10, got %d", idx.gotK)
	}
	if len(got) != 2 || got[1].Indicator() != "b" {
		t.Errorf("expected first 2 rows, got %d", len(got))
	}
}

func TestTableRetrieve_EmptyQuery(t *testing.T) {
	r := NewTableRetriever(&fakeEmbedder{}, Options{}, zap.NewNop())
	_, err := r.Retrieve(context.Background(), &fakeTableIndex{}, TableQuery{})
	if !errors.Is(err, domain.ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}
