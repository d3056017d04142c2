package norm

import "strings"

// Category is a coarse object category used to keep synthesis prompts coherent.
type Category string

// Object categories.
const (
	CategoryResidential    Category = "Жилые здания"
	CategoryPreschool      Category = "Дошкольные учреждения"
	CategorySchool         Category = "Школы"
	CategoryAdministrative Category = "Административные здания"
	CategoryGeneric        Category = "Общие нормы"
	CategoryOther          Category = "Прочие"
)

// UniversalMarker in applies_to marks a norm as applying to every building type.
const UniversalMarker = "все здания"

// Categorizable is anything that can be classified into a Category.
type Categorizable interface {
	Source() string
	AppliesTo() []string
}

var sourceKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryResidential, []string{"жилые", "многоквартирные"}},
	{CategoryPreschool, []string{"дошкольные", "доу"}},
	{CategorySchool, []string{"общеобразовательные", "школ"}},
	{CategoryAdministrative, []string{"административные", "бытовые"}},
}

// Classify maps a norm to its Category.
// The universal applies_to marker wins over source keywords.
func Classify(n Categorizable) Category {
	for _, tag := range n.AppliesTo() {
		if strings.EqualFold(strings.TrimSpace(tag), UniversalMarker) {
			return CategoryGeneric
		}
	}

	source := strings.ToLower(n.Source())
	for _, rule := range sourceKeywords {
		for _, kw := range rule.keywords {
			if strings.Contains(source, kw) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

// Group is one category with its norms in input order.
type Group[T Categorizable] struct {
	Category Category
	Items    []T
}

// GroupByCategory groups norms by Category. Groups appear in order of the first
// norm of each category; items keep input order.
func GroupByCategory[T Categorizable](items []T) []Group[T] {
	var groups []Group[T]
	pos := make(map[Category]int)
	for _, it := range items {
		c := Classify(it)
		i, ok := pos[c]
		if !ok {
			i = len(groups)
			pos[c] = i
			groups = append(groups, Group[T]{Category: c})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}
