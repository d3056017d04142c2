package normstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/normrag/internal/vectorindex"
)

const textJSON = `[
  {"id": "1", "full_id": "A:1", "source": "A", "domain": "АР", "applies_to": ["лестница"], "text": "foo"},
  {"id": "2", "source": ["A", "B"], "domain": "ПБ, АР", "applies_to": "кухня, санузел", "text": "bar", "check": "проверить"},
  {"id": "3", "source": "A", "text": ""}
]`

const tableJSON = `[
  {"indicator": "Высота", "values": {"I": "3,3"}, "source": "СН", "full_id": "СН:Высота"},
  {"indicator": "Пусто", "values": {}, "source": "СН"}
]`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func writeIndex(t *testing.T, path string, rows int) {
	t.Helper()
	idx, err := vectorindex.New(2)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	for i := range rows {
		if err := idx.Add([]float32{float32(i), 0}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := vectorindex.WriteFile(path, idx); err != nil {
		t.Fatalf("write index: %v", err)
	}
}

// newStoreDir writes an aligned store: 2 valid text norms, 1 valid table norm.
func newStoreDir(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	p := Paths{
		TextNorms:  writeFile(t, dir, "text.json", textJSON),
		TextIndex:  filepath.Join(dir, "text.index"),
		TableNorms: writeFile(t, dir, "table.json", tableJSON),
		TableIndex: filepath.Join(dir, "table.index"),
	}
	writeIndex(t, p.TextIndex, 2)
	writeIndex(t, p.TableIndex, 1)
	return p
}
