package navigator

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"modu-catholic/internal/schedule"
)

const (
	incheonDiocese      = "인천교구"
	incheonLinkScope    = ".con_area a"
	incheonSettleDelay  = 2 * time.Second
	incheonSectionStart = "미사안내"

	// incheonMaxExtraRunes bounds the fuzzy link match: 가정3동 may be
	// listed as 가정3동(준) but not as part of a longer unrelated name.
	incheonMaxExtraRunes = 4
)

var incheonSectionEnds = []string{"비고", "본당 소식", "수도회", "관할구역"}

// IncheonNavigator walks the diocese's mass-time list page. The site has
// no search; the parish list is scanned for the name and the entry
// clicked through to the detail page, where the schedule sits in a
// 미사안내 section.
type IncheonNavigator struct {
	site
}

// NewIncheonNavigator creates a navigator for the Incheon diocese site.
func NewIncheonNavigator(url string, timeout time.Duration, strip []string) *IncheonNavigator {
	return &IncheonNavigator{site{
		diocese: incheonDiocese,
		url:     url,
		timeout: timeout,
		strip:   strip,
	}}
}

func (n *IncheonNavigator) Navigate(page Page, name string) (*schedule.Result, error) {
	term := n.searchTerm(name)

	if err := page.Navigate(n.url, n.timeout); err != nil {
		return nil, err
	}
	if err := page.WaitReady(n.timeout); err != nil {
		return nil, err
	}

	links, err := page.Texts(incheonLinkScope)
	if err != nil || len(links) == 0 {
		links, err = page.Texts("a")
		if err != nil {
			return nil, err
		}
	}

	found := matchParishLink(links, term)
	if found == "" {
		return nil, fmt.Errorf("no parish link for %q", term)
	}

	if err := page.Click(incheonParishLink(found)); err != nil {
		return nil, err
	}
	if err := page.WaitReady(n.timeout); err != nil {
		return nil, err
	}
	page.Settle(incheonSettleDelay)

	body, err := page.BodyText()
	if err != nil {
		return nil, err
	}

	section, ok := massSection(body)
	if !ok {
		return schedule.FailedResult(body, term), nil
	}

	result := schedule.ParseMassTimes(section)
	if result == nil || result.Failed {
		return schedule.FailedResult(body, term), nil
	}
	result.SearchTerm = term
	return result, nil
}

// matchParishLink prefers an exact text match, then containment with a
// bounded length difference. Returns the matched link text.
func matchParishLink(links []string, term string) string {
	for _, link := range links {
		if strings.TrimSpace(link) == term {
			return term
		}
	}
	limit := utf8.RuneCountInString(term) + incheonMaxExtraRunes + 1
	for _, link := range links {
		text := strings.TrimSpace(link)
		if strings.Contains(text, term) && utf8.RuneCountInString(text) < limit {
			return text
		}
	}
	return ""
}

// massSection slices the 미사안내 section out of the detail page body,
// cutting it off at whichever following section appears first.
func massSection(body string) (string, bool) {
	idx := strings.Index(body, incheonSectionStart)
	if idx < 0 {
		return "", false
	}
	section := body[idx+len(incheonSectionStart):]
	for _, end := range incheonSectionEnds {
		if i := strings.Index(section, end); i >= 0 {
			section = section[:i]
		}
	}
	return section, true
}

func incheonParishLink(text string) string {
	return fmt.Sprintf("//a[normalize-space(.) = %s]", xpathQuote(text))
}
