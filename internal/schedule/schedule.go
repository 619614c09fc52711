// Package schedule parses free-form Korean mass-time text into a
// structured weekly schedule. Diocese websites publish schedules as
// prose with no shared format, so parsing is tolerant: malformed
// fragments degrade to passthrough or to a failure marker carrying the
// raw text, never to an error.
package schedule

// Mass categories as they appear in source text.
const (
	categorySunday   = "주일미사"
	categoryWeekday  = "평일미사"
	categorySaturday = "토요미사"
	categoryOther    = "기타"
)

// daySunday is the canonical Sunday symbol; the bare form "일" is
// normalized to it wherever the grammar allows.
const daySunday = "주일"

const daySaturday = "토"

// rawTextLimit bounds the retained excerpt of the source text.
const rawTextLimit = 500

// Entry is one worship time. Weekday is parser-internal bookkeeping for
// the sectioned format and is cleared before the entry is published.
type Entry struct {
	Time        string `json:"time"`
	Description string `json:"description,omitempty"`
	Weekday     string `json:"weekday,omitempty"`
}

// Result is a categorized schedule. A category is present only when it
// has entries. A result with no entries at all is a failed parse: it
// still carries the raw-text excerpt for auditing, plus the flag.
type Result struct {
	Sunday     []Entry `json:"sunday,omitempty"`
	Weekday    []Entry `json:"weekday,omitempty"`
	Saturday   []Entry `json:"saturday,omitempty"`
	Other      []Entry `json:"other,omitempty"`
	RawText    string  `json:"raw_text,omitempty"`
	SearchTerm string  `json:"search_term,omitempty"`
	Failed     bool    `json:"parsing_failed,omitempty"`
}

// FailedResult builds the parse-failure marker for text that produced
// no recognizable schedule.
func FailedResult(text, searchTerm string) *Result {
	return &Result{
		RawText:    excerpt(text),
		SearchTerm: searchTerm,
		Failed:     true,
	}
}

// HasEntries reports whether any category holds at least one entry.
func (r *Result) HasEntries() bool {
	if r == nil {
		return false
	}
	return len(r.Sunday)+len(r.Weekday)+len(r.Saturday)+len(r.Other) > 0
}

// EntryCount returns the total number of entries across categories.
func (r *Result) EntryCount() int {
	if r == nil {
		return 0
	}
	return len(r.Sunday) + len(r.Weekday) + len(r.Saturday) + len(r.Other)
}

// categoryOrder fixes iteration order over the category buckets.
var categoryOrder = []string{categorySunday, categoryWeekday, categorySaturday, categoryOther}

func (r *Result) bucket(category string) *[]Entry {
	switch category {
	case categorySunday:
		return &r.Sunday
	case categoryWeekday:
		return &r.Weekday
	case categorySaturday:
		return &r.Saturday
	default:
		return &r.Other
	}
}

func (r *Result) categoryCount() int {
	n := 0
	for _, cat := range categoryOrder {
		if len(*r.bucket(cat)) > 0 {
			n++
		}
	}
	return n
}

// excerpt truncates to the first rawTextLimit runes. Korean text makes
// byte slicing unsafe here.
func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= rawTextLimit {
		return text
	}
	return string(runes[:rawTextLimit])
}
