package navigator

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"modu-catholic/internal/schedule"
)

const (
	daeguDiocese        = "대구대교구"
	daeguSearchInput    = "#search"
	daeguInputFallback  = "input.church_search_input"
	daeguInputFallback2 = "input[name='search']"
	daeguNoResultText   = "검색결과 : 전체 0건"
	daeguLinkWait       = 3 * time.Second
	daeguResultSettle   = 2 * time.Second
	daeguDetailSettle   = 1 * time.Second

	// daeguMaxLinkRunes rejects navigation chrome whose text merely
	// mentions the parish; real result links are short.
	daeguMaxLinkRunes = 20
)

// DaeguNavigator drives the archdiocese parish search. Results are a
// board-style list; the parish link leads to the detail page with the
// schedule.
type DaeguNavigator struct {
	site
}

// NewDaeguNavigator creates a navigator for the Daegu archdiocese site.
func NewDaeguNavigator(url string, timeout time.Duration, strip []string) *DaeguNavigator {
	return &DaeguNavigator{site{
		diocese: daeguDiocese,
		url:     url,
		timeout: timeout,
		strip:   strip,
	}}
}

func (n *DaeguNavigator) Navigate(page Page, name string) (*schedule.Result, error) {
	term := n.searchTerm(name)

	if err := page.Navigate(n.url, n.timeout); err != nil {
		return nil, err
	}
	if err := page.WaitReady(n.timeout); err != nil {
		return nil, err
	}

	input := daeguSearchInput
	if !page.Exists(input) {
		input = daeguInputFallback
	}
	if !page.Exists(input) {
		input = daeguInputFallback2
	}
	if !page.Exists(input) {
		return nil, fmt.Errorf("search input not found on %s", n.url)
	}

	if err := page.Fill(input, term); err != nil {
		return nil, err
	}
	if err := page.PressEnter(); err != nil {
		return nil, err
	}
	if err := page.WaitReady(n.timeout); err != nil {
		return nil, err
	}
	page.Settle(daeguResultSettle)

	body, err := page.BodyText()
	if err != nil {
		return nil, err
	}
	if strings.Contains(body, daeguNoResultText) {
		return nil, fmt.Errorf("no search results for %q", term)
	}

	// Best effort; the scan below decides.
	page.WaitVisible(daeguResultLink(term), daeguLinkWait)

	links, err := page.Texts("a")
	if err != nil {
		return nil, err
	}
	found := false
	for _, link := range links {
		text := strings.TrimSpace(link)
		if strings.Contains(text, term) && utf8.RuneCountInString(text) < daeguMaxLinkRunes {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("results present but no link for %q", term)
	}

	if err := page.Click(daeguResultLink(term)); err != nil {
		return nil, err
	}
	if err := page.WaitReady(n.timeout); err != nil {
		return nil, err
	}
	page.Settle(daeguDetailSettle)

	body, err = page.BodyText()
	if err != nil {
		return nil, err
	}
	return n.parseResult(body, term), nil
}

func daeguResultLink(term string) string {
	return fmt.Sprintf("//a[contains(normalize-space(.), %s)][string-length(normalize-space(.)) < %d]",
		xpathQuote(term), daeguMaxLinkRunes)
}
