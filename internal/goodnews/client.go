// Package goodnews is the client for the 굿뉴스 parish directory: the
// list API that pages over every parish in the country and the mobile
// detail pages carrying the mass-time tables. The upstream runs on old
// infrastructure, so the client retries, throttles itself when
// responses slow down, and spaces detail requests with a politeness
// delay.
package goodnews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultListURL   = "https://catholicapi.catholic.or.kr/app/parish/getParishList.asp"
	defaultDetailURL = "https://maria.catholic.or.kr/mobile/church/bondang_view.asp"

	requestTimeout = 15 * time.Second

	maxRetries     = 3
	retryDelay     = 5 * time.Second
	timeoutBackoff = 60 * time.Second

	// Adaptive throttling: a slow response means the server is
	// struggling, so back off before the next request.
	slowResponse = 5 * time.Second
	slowBackoff  = 30 * time.Second
	lateResponse = 3 * time.Second
	lateBackoff  = 10 * time.Second

	// Politeness delay range between detail-page requests.
	politenessMin = 2 * time.Second
	politenessMax = 4 * time.Second
)

const (
	clientUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	clientReferer   = "https://maria.catholic.or.kr/"
	clientOrigin    = "https://maria.catholic.or.kr"
)

// ListItem is one parish row from the list API.
type ListItem struct {
	Orgnum    json.Number `json:"orgnum"`
	Title     string      `json:"TITLE"`
	Address   string      `json:"addr"`
	Phone     string      `json:"phone"`
	Pastor    string      `json:"father"`
	MassTimes string      `json:"missatime"`
	ImageURL  string      `json:"imgURL"`
}

type listResponse struct {
	ResultCount int        `json:"ResultCount"`
	BoardList   []ListItem `json:"BOARDLIST"`
}

// Client talks to the directory. Zero value is not usable; construct
// with NewClient.
type Client struct {
	listURL    string
	detailURL  string
	httpClient *http.Client
	log        *zap.Logger

	// pause is replaced in tests so retries and throttling do not
	// actually sleep.
	pause func(ctx context.Context, d time.Duration)
}

// NewClient builds a directory client. Empty URLs select the real
// endpoints.
func NewClient(listURL, detailURL string, log *zap.Logger) *Client {
	if listURL == "" {
		listURL = defaultListURL
	}
	if detailURL == "" {
		detailURL = defaultDetailURL
	}
	return &Client{
		listURL:    listURL,
		detailURL:  detailURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log,
		pause:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// ListPage fetches one page of the parish list. The second return is
// the total result count reported by the API.
func (c *Client) ListPage(ctx context.Context, keyword string, page, pageSize int) ([]ListItem, int, error) {
	form := url.Values{
		"gyoCode":   {""},
		"localCode": {""},
		"giguCode":  {""},
		"keyword":   {keyword},
		"app":       {"goodnews"},
		"PAGE":      {fmt.Sprint(page)},
		"P_SIZE":    {fmt.Sprint(pageSize)},
	}

	c.log.Info("directory list request",
		zap.Int("page", page),
		zap.String("keyword", keyword),
		zap.Int("page_size", pageSize))

	body, err := c.fetch(ctx, http.MethodPost, c.listURL, form.Encode())
	if err != nil {
		return nil, 0, err
	}

	var parsed listResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, 0, fmt.Errorf("decoding list response: %w", err)
	}

	c.log.Info("directory list response",
		zap.Int("items", len(parsed.BoardList)),
		zap.Int("total", parsed.ResultCount))
	return parsed.BoardList, parsed.ResultCount, nil
}

// DetailPageURL is the public address of a parish's detail page, kept
// on the record so follow-up tooling can revisit it.
func (c *Client) DetailPageURL(orgnum string) string {
	return fmt.Sprintf("%s?app=goodnews&orgnum=%s", c.detailURL, url.QueryEscape(orgnum))
}

// fetch runs one request with retries. A timeout gets the long backoff
// before the next attempt; other failures just wait out the retry
// delay.
func (c *Client) fetch(ctx context.Context, method, u, form string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		body, err := c.once(ctx, method, u, form)
		if err == nil {
			return body, nil
		}
		lastErr = err
		c.log.Warn("request failed",
			zap.String("url", u),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxRetries),
			zap.Error(err))

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isTimeout(err) {
			c.log.Warn("server timeout, backing off", zap.Duration("pause", timeoutBackoff))
			c.pause(ctx, timeoutBackoff)
		}
		if attempt < maxRetries {
			c.pause(ctx, retryDelay)
		}
	}
	return nil, fmt.Errorf("all retries exhausted for %s: %w", u, lastErr)
}

func (c *Client) once(ctx context.Context, method, u, form string) ([]byte, error) {
	var reqBody io.Reader
	if form != "" {
		reqBody = strings.NewReader(form)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", clientUserAgent)
	req.Header.Set("Referer", clientReferer)
	req.Header.Set("Origin", clientOrigin)
	if form != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	switch {
	case elapsed >= slowResponse:
		c.log.Warn("server responding slowly",
			zap.Duration("elapsed", elapsed),
			zap.Duration("pause", slowBackoff))
		c.pause(ctx, slowBackoff)
	case elapsed >= lateResponse:
		c.log.Info("server response delayed",
			zap.Duration("elapsed", elapsed),
			zap.Duration("pause", lateBackoff))
		c.pause(ctx, lateBackoff)
	}
	return body, nil
}

func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func politenessDelay() time.Duration {
	return politenessMin + rand.N(politenessMax-politenessMin)
}
