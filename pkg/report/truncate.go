package report

const (
	DefaultMinEntries = 10
	DefaultMinPercent = 1.0
)

// Truncation decides where text summaries stop listing entries: once more
// than MinEntries entries have been considered and the current one is
// below MinPercent.
type Truncation struct {
	MinEntries int     `yaml:"min_entries" json:"min_entries"`
	MinPercent float64 `yaml:"min_percent" json:"min_percent"`
}

var DefaultTruncation = Truncation{
	MinEntries: DefaultMinEntries,
	MinPercent: DefaultMinPercent,
}

// NoTruncation lists everything.
var NoTruncation = Truncation{MinEntries: -1, MinPercent: 0}

// Stop reports whether the n-th entry (counting from 1) with the given
// percentage must be replaced by the ellipsis marker.
func (t Truncation) Stop(n int, percent float64) bool {
	return n > t.MinEntries && percent < t.MinPercent
}

// Truncate applies t to a ranked list and reports whether it was cut.
func (t Truncation) Truncate(entries []Entry) ([]Entry, bool) {
	for i, e := range entries {
		if t.Stop(i+1, e.Percent) {
			return entries[:i], true
		}
	}

	return entries, false
}
