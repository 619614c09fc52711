package navigator

import (
	"fmt"
	"strings"
	"time"

	"modu-catholic/internal/schedule"
)

const (
	suwonDiocese        = "수원교구"
	suwonSearchInput    = "input[name='k']"
	suwonInputFallback  = "input#k"
	suwonSearchButton   = "button.btn_search"
	suwonSubmitFallback = "input[type='submit']"
	suwonRowLinkWait    = 3 * time.Second
	suwonSettleDelay    = 1 * time.Second
)

// SuwonNavigator drives the diocese parish search. Results come back as
// a table; the matching row links to the parish detail page, which holds
// the schedule.
type SuwonNavigator struct {
	site
}

// NewSuwonNavigator creates a navigator for the Suwon diocese site.
func NewSuwonNavigator(url string, timeout time.Duration, strip []string) *SuwonNavigator {
	return &SuwonNavigator{site{
		diocese: suwonDiocese,
		url:     url,
		timeout: timeout,
		strip:   strip,
	}}
}

func (n *SuwonNavigator) Navigate(page Page, name string) (*schedule.Result, error) {
	term := n.searchTerm(name)

	if err := page.Navigate(n.url, n.timeout); err != nil {
		return nil, err
	}
	if err := page.WaitReady(n.timeout); err != nil {
		return nil, err
	}

	input := suwonSearchInput
	if !page.Exists(input) {
		input = suwonInputFallback
	}
	if !page.Exists(input) {
		return nil, fmt.Errorf("search input not found on %s", n.url)
	}
	if err := page.Fill(input, term); err != nil {
		return nil, err
	}

	// The search button is preferred; Enter is the last resort because
	// the form swallows key events on some pages.
	switch {
	case page.Exists(suwonSearchButton):
		if err := page.Click(suwonSearchButton); err != nil {
			return nil, err
		}
	case page.Exists(suwonSubmitFallback):
		if err := page.Click(suwonSubmitFallback); err != nil {
			return nil, err
		}
	default:
		if err := page.PressEnter(); err != nil {
			return nil, err
		}
	}
	if err := page.WaitReady(n.timeout); err != nil {
		return nil, err
	}

	if !page.Exists("table") {
		return nil, fmt.Errorf("no result table for %q", term)
	}
	// Rows render late; wait briefly but scan whatever is there.
	page.WaitVisible("table tbody tr a", suwonRowLinkWait)

	rows, err := page.Texts("table tbody tr")
	if err != nil {
		return nil, err
	}
	found := false
	for _, row := range rows {
		if strings.Contains(row, term) {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("no result row for %q", term)
	}

	if err := page.Click(suwonRowLink(term)); err != nil {
		return nil, err
	}
	if err := page.WaitReady(n.timeout); err != nil {
		return nil, err
	}
	page.Settle(suwonSettleDelay)

	body, err := page.BodyText()
	if err != nil {
		return nil, err
	}
	return n.parseResult(body, term), nil
}

func suwonRowLink(term string) string {
	return fmt.Sprintf("//table//tbody//tr[contains(., %s)]//a", xpathQuote(term))
}
