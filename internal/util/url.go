package util

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pauljones0/rss-autogen-giscus/internal/models"
)

// ResolvePathname returns the URL path of an absolute link, which Giscus uses
// as the discussion title in "pathname" mapping mode. A single trailing slash
// is stripped unless the path is exactly "/".
func ResolvePathname(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", fmt.Errorf("%w: empty link", models.ErrInvalidLink)
	}

	parsedURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", models.ErrInvalidLink, link, err)
	}
	if !parsedURL.IsAbs() || parsedURL.Host == "" {
		return "", fmt.Errorf("%w: %q is not an absolute URL", models.ErrInvalidLink, link)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", models.ErrInvalidLink, parsedURL.Scheme)
	}

	// Giscus reads location.pathname, which keeps percent-encoding.
	path := parsedURL.EscapedPath()
	if path == "" {
		return "", fmt.Errorf("%w: %q has no path", models.ErrInvalidLink, link)
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path, nil
}
