package repair

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Stats accumulates run totals. Skipped records (no name, no diocese)
// are not counted; everything attempted lands in exactly one of success
// or failed.
type Stats struct {
	Total   int
	Success int
	Failed  int

	perDiocese map[string]*dioceseCount
	order      []string
}

type dioceseCount struct {
	success int
	failed  int
}

func newStats() *Stats {
	return &Stats{perDiocese: make(map[string]*dioceseCount)}
}

func (s *Stats) succeed(diocese string) {
	s.Total++
	s.Success++
	s.count(diocese).success++
}

func (s *Stats) fail(diocese string) {
	s.Total++
	s.Failed++
	s.count(diocese).failed++
}

func (s *Stats) count(diocese string) *dioceseCount {
	c, ok := s.perDiocese[diocese]
	if !ok {
		c = &dioceseCount{}
		s.perDiocese[diocese] = c
		s.order = append(s.order, diocese)
	}
	return c
}

// Summary renders the per-diocese result table. Diocese names are
// double-width Hangul, so column padding goes by display width rather
// than rune count.
func (s *Stats) Summary() string {
	const (
		header = "diocese"
		footer = "total"
	)

	width := runewidth.StringWidth(header)
	if w := runewidth.StringWidth(footer); w > width {
		width = w
	}
	for _, d := range s.order {
		if w := runewidth.StringWidth(d); w > width {
			width = w
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %7s  %7s\n", pad(header, width), "success", "failed")
	for _, d := range s.order {
		c := s.perDiocese[d]
		fmt.Fprintf(&b, "%s  %7d  %7d\n", pad(d, width), c.success, c.failed)
	}
	fmt.Fprintf(&b, "%s  %7d  %7d\n", pad(footer, width), s.Success, s.Failed)
	return b.String()
}

func pad(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}
