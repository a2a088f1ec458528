package discussions

import (
	"fmt"
	"io"
	"net/http"

	"github.com/pauljones0/rss-autogen-giscus/internal/models"
)

const userAgent = "rss_autogen_giscus"

// StatusError is returned by the transport for responses that mean the
// credentials were rejected. It unwraps to models.ErrAuth so callers can
// classify it through the *url.Error the HTTP client wraps it in.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return models.ErrAuth
}

// apiTransport sets the headers every GitHub call carries and turns
// credential failures into a StatusError. The GraphQL client otherwise
// flattens non-200 statuses into an opaque string.
type apiTransport struct {
	base http.RoundTripper
}

func (t *apiTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Github-Next-Global-ID", "1")
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/vnd.github+json")
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if isAuthFailure(resp) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}

// isAuthFailure treats 401 and any 403 that is not a rate limit as a
// credential problem.
func isAuthFailure(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden:
		return resp.Header.Get("X-RateLimit-Remaining") != "0" && resp.Header.Get("Retry-After") == ""
	}
	return false
}
