package goodnews

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"modu-catholic/internal/model"
)

// Detail fetches a parish's mobile detail page and parses its
// mass-time table. No table means no rows and no error; those parishes
// go to the follow-up queue instead.
func (c *Client) Detail(ctx context.Context, orgnum string) ([]model.MassTimeRow, error) {
	c.pause(ctx, politenessDelay())

	body, err := c.fetch(ctx, http.MethodGet, c.DetailPageURL(orgnum), "")
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing detail page for orgnum %s: %w", orgnum, err)
	}
	return parseMassTable(doc), nil
}

// parseMassTable walks table.register05. The mass type lives in a th
// spanning several rows, so it carries forward until the next th; each
// row then holds a day cell and a times cell.
func parseMassTable(doc *goquery.Document) []model.MassTimeRow {
	table := doc.Find("table.register05").First()
	if table.Length() == 0 {
		return nil
	}

	var rows []model.MassTimeRow
	massType := ""
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		th := row.Find("th").First()
		hasHeader := th.Length() > 0
		if hasHeader {
			massType = strings.TrimSpace(th.Text())
		}

		tds := row.Find("td")
		switch {
		case tds.Length() >= 2:
			day := strings.TrimSpace(tds.Eq(0).Text())
			times := strings.TrimSpace(tds.Eq(1).Text())
			if day != "" && times != "" {
				rows = append(rows, model.MassTimeRow{Type: massType, Day: day, Times: times})
			}
		case tds.Length() == 1 && hasHeader:
			if times := strings.TrimSpace(tds.Eq(0).Text()); times != "" {
				rows = append(rows, model.MassTimeRow{Type: massType, Times: times})
			}
		}
	})
	return rows
}

// FormatRows renders a mass-time table as one line of text for fields
// that only fit a string.
func FormatRows(rows []model.MassTimeRow) string {
	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Day != "" {
			parts = append(parts, fmt.Sprintf("[%s] %s: %s", r.Type, r.Day, r.Times))
		} else {
			parts = append(parts, fmt.Sprintf("[%s] %s", r.Type, r.Times))
		}
	}
	return strings.Join(parts, " | ")
}
