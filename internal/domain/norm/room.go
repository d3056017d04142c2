package norm

import (
	"strings"

	"github.com/kljensen/snowball"
)

var roomSynonyms = map[string]string{
	"гостиная":       "жилая комната",
	"спальня":        "жилая комната",
	"детская":        "жилая комната",
	"кабинет":        "жилая комната",
	"холл":           "прихожая",
	"прихожая":       "прихожая",
	"санузел":        "туалет",
	"с.у":            "туалет",
	"ванная":         "туалет",
	"уборная":        "туалет",
	"туалет":         "туалет",
	"кладовка":       "кладовая",
	"гардероб":       "кладовая",
	"кухня-гостиная": "кухня",
	"кухня-ниша":     "кухня",
	"кухня":          "кухня",
	"лоджия":         "балкон",
	"балкон":         "балкон",
	"терраса":        "балкон",
}

// stemmedSynonyms maps the stemmed form of each synonym to its canonical room type.
var stemmedSynonyms = func() map[string]string {
	m := make(map[string]string, len(roomSynonyms))
	for k, v := range roomSynonyms {
		m[stemPhrase(k)] = v
	}
	return m
}()

// NormalizeRoom maps a room/space name to its canonical type.
// Exact synonyms match first, then inflected forms by Russian stem.
// Unknown names are returned lower-cased and trimmed.
func NormalizeRoom(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	if v, ok := roomSynonyms[name]; ok {
		return v
	}
	if v, ok := stemmedSynonyms[stemPhrase(name)]; ok {
		return v
	}
	return name
}

func stemPhrase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		stemmed, err := snowball.Stem(w, "russian", true)
		if err == nil && stemmed != "" {
			words[i] = stemmed
		}
	}
	return strings.Join(words, " ")
}
