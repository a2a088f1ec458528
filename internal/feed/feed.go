// Package feed fetches the website feed and normalizes its entries.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pauljones0/rss-autogen-giscus/internal/models"
)

const (
	userAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) rss-autogen-giscus/1.0 Chrome/113.0.0.0 Safari/537.36"
	maxFeedBytes = 10 << 20
)

// Client fetches and parses a single RSS, Atom or JSON feed.
type Client struct {
	feedURL    string
	httpClient *http.Client
	parser     *gofeed.Parser
}

func New(feedURL string, timeout time.Duration) *Client {
	return &Client{
		feedURL:    feedURL,
		httpClient: &http.Client{Timeout: timeout},
		parser:     gofeed.NewParser(),
	}
}

// Fetch downloads the feed and returns its entries in feed order. Network
// failures and non-200 responses wrap models.ErrFetch; unreadable documents
// wrap models.ErrParse. There is no retry.
func (c *Client) Fetch(ctx context.Context) ([]models.FeedEntry, error) {
	data, err := c.download(ctx)
	if err != nil {
		return nil, err
	}
	return Parse(c.parser, data)
}

func (c *Client) download(ctx context.Context) ([]byte, error) {
	parsedURL, err := url.Parse(c.feedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid feed URL %s: %v", models.ErrFetch, c.feedURL, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("%w: invalid URL scheme %s: only http and https allowed", models.ErrFetch, parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request for %s: %v", models.ErrFetch, c.feedURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, */*;q=0.8")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch %s: %w", models.ErrFetch, c.feedURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: failed to fetch %s: status code %d", models.ErrFetch, c.feedURL, res.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", models.ErrFetch, c.feedURL, err)
	}
	return data, nil
}

// Parse normalizes a raw feed document into entries.
func Parse(parser *gofeed.Parser, data []byte) ([]models.FeedEntry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", models.ErrParse)
	}

	f, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrParse, err)
	}

	entries := make([]models.FeedEntry, 0, len(f.Items))
	for _, item := range f.Items {
		if item == nil {
			continue
		}
		entries = append(entries, normalizeItem(item))
	}
	return entries, nil
}

func normalizeItem(item *gofeed.Item) models.FeedEntry {
	entry := models.FeedEntry{
		Title:       strings.TrimSpace(item.Title),
		Link:        itemLink(item),
		PublishedAt: item.PublishedParsed,
		UpdatedAt:   item.UpdatedParsed,
		Summary:     item.Description,
	}
	if entry.Summary == "" {
		entry.Summary = item.Content
	}
	return entry
}

// itemLink prefers the item's primary link and falls back to the first of its
// extra links, which is where some Atom feeds put the alternate URL.
func itemLink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	for _, l := range item.Links {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}
