// Package navigator finds a parish's mass schedule on its diocese
// website. Each diocese gets its own navigator because the sites share
// nothing: some have search forms, some only clickable lists, one an
// alphabetic index loaded over AJAX. A registry maps diocese names to
// navigators.
package navigator

import (
	"strings"
	"time"

	"modu-catholic/internal/config"
	"modu-catholic/internal/schedule"
)

// Page is the browser surface a navigator drives. Selectors starting
// with // are XPath, everything else CSS. Texts accepts CSS only.
type Page interface {
	Navigate(url string, timeout time.Duration) error
	WaitReady(timeout time.Duration) error
	Settle(d time.Duration) error
	Exists(sel string) bool
	WaitVisible(sel string, timeout time.Duration) error
	Text(sel string) (string, error)
	Texts(sel string) ([]string, error)
	BodyText() (string, error)
	Fill(sel, value string) error
	PressEnter() error
	Click(sel string) error
}

// Navigator resolves one parish's schedule on one diocese site.
//
// Navigate returns an error when the site could not be driven to the
// parish (navigation failure, no search input, no matching entry). When
// the parish page was reached but its text yielded no schedule, it
// returns the failure-marker result instead, carrying a raw excerpt for
// later inspection.
type Navigator interface {
	Diocese() string
	Navigate(page Page, name string) (*schedule.Result, error)
}

// site carries what every diocese navigator shares: the entry URL, the
// navigation timeout, and the terms stripped from parish names before
// searching.
type site struct {
	diocese string
	url     string
	timeout time.Duration
	strip   []string
}

func (s site) Diocese() string {
	return s.diocese
}

// searchTerm strips the configured suffixes from a parish name. 명동성당
// becomes 명동, 계산주교좌성당 becomes 계산 on the Daegu site.
func (s site) searchTerm(name string) string {
	term := name
	for _, t := range s.strip {
		term = strings.ReplaceAll(term, t, "")
	}
	return strings.TrimSpace(term)
}

// parseResult runs the schedule parser over extracted page text. A parse
// that produces no entries collapses into the uniform failure marker.
func (s site) parseResult(text, term string) *schedule.Result {
	result := schedule.ParseMassTimes(text)
	if result == nil || result.Failed {
		return schedule.FailedResult(text, term)
	}
	result.SearchTerm = term
	return result
}

// Registry resolves diocese names to navigators.
type Registry struct {
	entries []registryEntry
}

type registryEntry struct {
	key string
	nav Navigator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a navigator, matched when a normalized diocese name
// contains key. Registration order is match priority.
func (r *Registry) Register(key string, n Navigator) {
	r.entries = append(r.entries, registryEntry{key: key, nav: n})
}

// Resolve returns the navigator for a diocese name. The name is
// normalized first, so 천주교 서울대교구 and 서울대교구 resolve the same.
// Dioceses without a navigator return false; coverage is partial on
// purpose.
func (r *Registry) Resolve(diocese string) (Navigator, bool) {
	normalized := strings.ReplaceAll(diocese, "천주교", "")
	normalized = strings.ReplaceAll(normalized, " ", "")
	normalized = strings.TrimSpace(normalized)

	for _, e := range r.entries {
		if strings.Contains(normalized, e.key) {
			return e.nav, true
		}
	}
	return nil, false
}

// Navigators returns the registered navigators in order.
func (r *Registry) Navigators() []Navigator {
	navs := make([]Navigator, 0, len(r.entries))
	for _, e := range r.entries {
		navs = append(navs, e.nav)
	}
	return navs
}

// BuildRegistry wires a navigator for every handled diocese present in
// the configuration. Dioceses missing from the configuration are simply
// not registered.
func BuildRegistry(cfg *config.Config) *Registry {
	reg := NewRegistry()
	fallback := cfg.Browser.PageLoadTimeout()

	if d, ok := cfg.Diocese(seoulDiocese); ok {
		reg.Register("서울", NewSeoulNavigator(d.URL, d.PageLoadTimeout(fallback), cfg.StripTerms(d.Name)))
	}
	if d, ok := cfg.Diocese(daeguDiocese); ok {
		reg.Register("대구", NewDaeguNavigator(d.URL, d.PageLoadTimeout(fallback), cfg.StripTerms(d.Name)))
	}
	if d, ok := cfg.Diocese(suwonDiocese); ok {
		reg.Register("수원", NewSuwonNavigator(d.URL, d.PageLoadTimeout(fallback), cfg.StripTerms(d.Name)))
	}
	if d, ok := cfg.Diocese(incheonDiocese); ok {
		reg.Register("인천", NewIncheonNavigator(d.URL, d.PageLoadTimeout(fallback), cfg.StripTerms(d.Name)))
	}
	if d, ok := cfg.Diocese(busanDiocese); ok {
		reg.Register("부산", NewBusanNavigator(d.URL, d.PageLoadTimeout(fallback), cfg.StripTerms(d.Name)))
	}
	return reg
}
