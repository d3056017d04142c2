package retrieval

// Defaults.
const (
	DefaultTextTopK         = 20
	DefaultTableTopK        = 5
	DefaultTextOverfetch    = 2
	DefaultTableOverfetch   = 5
	DefaultAppliesThreshold = 0.6
)

// DefaultIgnoredDomains are UI placeholder values that mean "no domain filter".
var DefaultIgnoredDomains = []string{"- Не выбрано -"}

// Options tunes both retrievers.
type Options struct {
	TextTopK         int
	TableTopK        int
	TextOverfetch    int
	TableOverfetch   int
	AppliesThreshold float32
	IgnoredDomains   []string
}

// DefaultOptions returns the standard retrieval settings.
func DefaultOptions() Options {
	return Options{
		TextTopK:         DefaultTextTopK,
		TableTopK:        DefaultTableTopK,
		TextOverfetch:    DefaultTextOverfetch,
		TableOverfetch:   DefaultTableOverfetch,
		AppliesThreshold: DefaultAppliesThreshold,
		IgnoredDomains:   DefaultIgnoredDomains,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TextTopK <= 0 {
		o.TextTopK = d.TextTopK
	}
	if o.TableTopK <= 0 {
		o.TableTopK = d.TableTopK
	}
	if o.TextOverfetch <= 0 {
		o.TextOverfetch = d.TextOverfetch
	}
	if o.TableOverfetch <= 0 {
		o.TableOverfetch = d.TableOverfetch
	}
	if o.AppliesThreshold <= 0 {
		o.AppliesThreshold = d.AppliesThreshold
	}
	if o.IgnoredDomains == nil {
		o.IgnoredDomains = d.IgnoredDomains
	}
	return o
}
