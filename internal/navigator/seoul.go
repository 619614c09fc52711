package navigator

import (
	"fmt"
	"strings"
	"time"

	"modu-catholic/internal/schedule"
)

const (
	seoulDiocese       = "서울대교구"
	seoulSearchInput   = "#srchText"
	seoulInputFallback = "input.inp"
	seoulResultMarker  = "검색결과"
	seoulSettleDelay   = 1 * time.Second
)

// SeoulNavigator drives the archdiocese parish search. Search results
// render the matching parishes' mass times directly on the result page,
// so no detail click is needed.
type SeoulNavigator struct {
	site
}

// NewSeoulNavigator creates a navigator for the Seoul archdiocese site.
func NewSeoulNavigator(url string, timeout time.Duration, strip []string) *SeoulNavigator {
	return &SeoulNavigator{site{
		diocese: seoulDiocese,
		url:     url,
		timeout: timeout,
		strip:   strip,
	}}
}

func (n *SeoulNavigator) Navigate(page Page, name string) (*schedule.Result, error) {
	term := n.searchTerm(name)

	if err := page.Navigate(n.url, n.timeout); err != nil {
		return nil, err
	}
	if err := page.WaitReady(n.timeout); err != nil {
		return nil, err
	}

	input := seoulSearchInput
	if !page.Exists(input) {
		input = seoulInputFallback
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
	page.Settle(seoulSettleDelay)

	body, err := page.BodyText()
	if err != nil {
		return nil, err
	}
	if !strings.Contains(body, term) && !strings.Contains(body, seoulResultMarker) {
		return nil, fmt.Errorf("no search results for %q", term)
	}

	return n.parseResult(body, term), nil
}
