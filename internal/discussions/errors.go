package discussions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v80/github"

	"github.com/pauljones0/rss-autogen-giscus/internal/models"
)

// GraphQL errors arrive as plain messages, so they are classified by text.
var (
	notFoundMessages = []string{
		"could not resolve to a repository",
		"could not resolve to a node",
		"not_found",
	}
	authMessages = []string{
		"bad credentials",
		"resource not accessible by",
		"must have admin rights",
		"does not have the correct permissions",
	}
	duplicateMessages = []string{
		"already exists",
		"has already been taken",
	}
)

// wrapError converts go-github and GraphQL errors into the models error
// taxonomy. Anything unrecognized is a transport error.
func wrapError(err error, operation string) error {
	if err == nil {
		return nil
	}

	for _, known := range []error{models.ErrAuth, models.ErrRepositoryNotFound, models.ErrDuplicate, models.ErrTransport} {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", operation, err)
		}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %v", operation, models.ErrRepositoryNotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w: %v", operation, models.ErrAuth, err)
		}
		return fmt.Errorf("%s: %w: %v", operation, models.ErrTransport, err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", operation, models.ErrTransport, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, authMessages):
		return fmt.Errorf("%s: %w: %v", operation, models.ErrAuth, err)
	case containsAny(msg, notFoundMessages):
		return fmt.Errorf("%s: %w: %v", operation, models.ErrRepositoryNotFound, err)
	case containsAny(msg, duplicateMessages):
		return fmt.Errorf("%s: %w: %v", operation, models.ErrDuplicate, err)
	}
	return fmt.Errorf("%s: %w: %w", operation, models.ErrTransport, err)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
