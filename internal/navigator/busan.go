package navigator

import (
	"fmt"
	"time"

	"modu-catholic/internal/schedule"
)

const (
	busanDiocese     = "부산교구"
	busanIndexTab    = "#ganadaTab"
	busanMassContent = "#misaContent"
	busanTabSettle   = 500 * time.Millisecond
	busanListWait    = 5 * time.Second
	busanEntrySettle = 1500 * time.Millisecond
)

// busanBuckets maps a parish name's leading consonant onto the site's
// fourteen index tabs. Tense consonants share a tab with their plain
// counterparts.
var busanBuckets = map[string]int{
	"ㄱ": 0, "ㄲ": 0,
	"ㄴ": 1,
	"ㄷ": 2, "ㄸ": 2,
	"ㄹ": 3,
	"ㅁ": 4,
	"ㅂ": 5, "ㅃ": 5,
	"ㅅ": 6, "ㅆ": 6,
	"ㅇ": 7,
	"ㅈ": 8, "ㅉ": 8,
	"ㅊ": 9,
	"ㅋ": 10,
	"ㅌ": 11,
	"ㅍ": 12,
	"ㅎ": 13,
}

// BusanNavigator works the diocese's AJAX index: activate the alphabetic
// tab, pick the consonant bucket for the parish name, wait for the entry
// to render, click it, and read the schedule panel.
type BusanNavigator struct {
	site
}

// NewBusanNavigator creates a navigator for the Busan diocese site.
func NewBusanNavigator(url string, timeout time.Duration, strip []string) *BusanNavigator {
	return &BusanNavigator{site{
		diocese: busanDiocese,
		url:     url,
		timeout: timeout,
		strip:   strip,
	}}
}

func (n *BusanNavigator) Navigate(page Page, name string) (*schedule.Result, error) {
	term := n.searchTerm(name)

	if err := page.Navigate(n.url, n.timeout); err != nil {
		return nil, err
	}
	if err := page.WaitReady(n.timeout); err != nil {
		return nil, err
	}

	if !page.Exists(busanIndexTab) {
		return nil, fmt.Errorf("index tab not found on %s", n.url)
	}
	if err := page.Click(busanIndexTab); err != nil {
		return nil, err
	}
	page.Settle(busanTabSettle)

	consonant, ok := schedule.LeadingConsonant(term)
	if !ok {
		return nil, fmt.Errorf("no leading consonant for %q", term)
	}
	bucket, ok := busanBuckets[consonant]
	if !ok {
		return nil, fmt.Errorf("no index bucket for consonant %q", consonant)
	}

	bucketSel := fmt.Sprintf("#ganadaOrder .word[value='%d']", bucket)
	if !page.Exists(bucketSel) {
		return nil, fmt.Errorf("consonant tab %q not found", consonant)
	}
	if err := page.Click(bucketSel); err != nil {
		return nil, err
	}
	page.Settle(busanTabSettle)

	entry := busanParishEntry(term)
	if err := page.WaitVisible(entry, busanListWait); err != nil {
		return nil, fmt.Errorf("parish %q not in index: %w", term, err)
	}
	if err := page.Click(entry); err != nil {
		return nil, err
	}
	page.Settle(busanEntrySettle)

	content, err := page.Text(busanMassContent)
	if err != nil {
		return nil, err
	}
	return n.parseResult(content, term), nil
}

func busanParishEntry(term string) string {
	return fmt.Sprintf(
		"//*[@id='catholicChurch']//*[contains(concat(' ', normalize-space(@class), ' '), ' bondang ')][contains(., %s)]",
		xpathQuote(term))
}
