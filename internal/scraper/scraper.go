// Package scraper reads the description of a published post from its page.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) rss-autogen-giscus/1.0 Chrome/113.0.0.0 Safari/537.36"

type Scraper interface {
	FetchDescription(ctx context.Context, pageURL string) (string, error)
}

type Client struct {
	httpClient   *http.Client
	selectors    SelectorConfig
	allowedHosts []string
}

// New creates a scraper that only fetches pages on allowedHosts. The feed's
// own host is the usual allowlist: post links pointing anywhere else are not
// followed.
func New(timeout time.Duration, selectors SelectorConfig, allowedHosts ...string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		selectors:    selectors,
		allowedHosts: allowedHosts,
	}
}

// FetchDescription returns the page's description, trying the configured
// selectors in order and then any JSON-LD article block. An empty string with
// a nil error means the page has no description.
func (c *Client) FetchDescription(ctx context.Context, pageURL string) (string, error) {
	doc, err := c.fetchHTMLContent(ctx, pageURL)
	if err != nil {
		return "", err
	}

	for _, sel := range c.selectors.Description {
		match := doc.Find(sel.Selector).First()
		if match.Length() == 0 {
			continue
		}
		var value string
		if sel.Attr == "" {
			value = match.Text()
		} else {
			value, _ = match.Attr(sel.Attr)
		}
		if value = strings.TrimSpace(value); value != "" {
			return value, nil
		}
	}

	if desc := jsonLDDescription(doc); desc != "" {
		return desc, nil
	}

	slog.Debug("No description found on page", "url", pageURL)
	return "", nil
}

func (c *Client) fetchHTMLContent(ctx context.Context, urlStr string) (*goquery.Document, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %s: %w", urlStr, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme %s: only http and https allowed", parsedURL.Scheme)
	}

	hostname := parsedURL.Hostname()
	allowed := false
	for _, host := range c.allowedHosts {
		if strings.EqualFold(hostname, host) {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("URL hostname %s is not in allowlist", hostname)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for URL %s: %w", urlStr, err)
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL %s: %w", urlStr, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL %s: status code %d", urlStr, res.StatusCode)
	}

	body, err := charset.NewReader(res.Body, res.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode URL %s: %w", urlStr, err)
	}
	return goquery.NewDocumentFromReader(body)
}
