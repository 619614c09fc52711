// Package wordpress is a minimal WordPress REST API client covering
// what automated publishing needs: posts, media uploads and tag
// resolution, all over application-password basic auth.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	apiPrefix = "/wp-json/wp/v2/"

	requestTimeout  = 30 * time.Second
	downloadTimeout = 15 * time.Second
	uploadTimeout   = 60 * time.Second
)

// Post is the slice of a created post the publisher needs back.
type Post struct {
	ID   int    `json:"id"`
	Link string `json:"link"`
}

// NewPost is the payload for creating a post.
type NewPost struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Status        string `json:"status"`
	Categories    []int  `json:"categories"`
	Tags          []int  `json:"tags"`
	FeaturedMedia int    `json:"featured_media"`
}

// Client talks to one WordPress site.
type Client struct {
	baseURL     string
	user        string
	appPassword string
	httpClient  *http.Client

	mu       sync.Mutex
	tagCache map[string]int
}

// NewClient creates a client for the site at baseURL.
func NewClient(baseURL, user, appPassword string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		user:        user,
		appPassword: appPassword,
		httpClient:  &http.Client{},
		tagCache:    make(map[string]int),
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+endpoint, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.user, c.appPassword)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("wordpress api status %d: %s", resp.StatusCode, truncate(data, 200))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// GetOrCreateTag resolves a tag name to its ID, creating the tag when
// the site does not have it yet. Lookups are cached per client.
func (c *Client) GetOrCreateTag(ctx context.Context, name string) (int, error) {
	c.mu.Lock()
	id, ok := c.tagCache[name]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	var found []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := c.do(ctx, "GET", "tags?search="+url.QueryEscape(name), nil, &found); err != nil {
		return 0, fmt.Errorf("searching tag %q: %w", name, err)
	}
	for _, tag := range found {
		if strings.EqualFold(tag.Name, name) {
			c.cacheTag(name, tag.ID)
			return tag.ID, nil
		}
	}

	var created struct {
		ID int `json:"id"`
	}
	if err := c.do(ctx, "POST", "tags", map[string]string{"name": name}, &created); err != nil {
		return 0, fmt.Errorf("creating tag %q: %w", name, err)
	}
	if created.ID == 0 {
		return 0, fmt.Errorf("creating tag %q: no id in response", name)
	}
	c.cacheTag(name, created.ID)
	return created.ID, nil
}

func (c *Client) cacheTag(name string, id int) {
	c.mu.Lock()
	c.tagCache[name] = id
	c.mu.Unlock()
}

// UploadImage downloads an image and stores it in the media library,
// returning the attachment ID. An empty source URL uploads nothing.
func (c *Client) UploadImage(ctx context.Context, imageURL, filename string) (int, error) {
	if imageURL == "" {
		return 0, nil
	}

	data, contentType, err := c.download(ctx, imageURL)
	if err != nil {
		return 0, fmt.Errorf("downloading image: %w", err)
	}

	uctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(uctx, "POST", c.baseURL+apiPrefix+"media", bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.user, c.appPassword)
	req.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("uploading image: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("wordpress api status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var media struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(body, &media); err != nil {
		return 0, fmt.Errorf("parsing response: %w", err)
	}
	return media.ID, nil
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}

// CreatePost creates a post and returns its ID and public link.
func (c *Client) CreatePost(ctx context.Context, post NewPost) (*Post, error) {
	var created Post
	if err := c.do(ctx, "POST", "posts", post, &created); err != nil {
		return nil, fmt.Errorf("creating post: %w", err)
	}
	if created.ID == 0 {
		return nil, fmt.Errorf("creating post: no id in response")
	}
	return &created, nil
}
