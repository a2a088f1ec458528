package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/pauljones0/rss-autogen-giscus/internal/validator"
)

const (
	DefaultLookbackDays      = 7
	DefaultAPIURL            = "https://api.github.com/"
	DefaultGraphQLURL        = "https://api.github.com/graphql"
	DefaultHTTPTimeout       = 60 * time.Second
	DefaultConcurrency       = 4
	DefaultRequestsPerSecond = 5.0
	DefaultSearchPages       = 10

	// MaxLookbackDays is the largest window time.Duration can hold.
	MaxLookbackDays = 106751
)

// Config is built once at startup and shared read-only by every component.
type Config struct {
	GitHubToken        string        `validate:"required"`
	RepoOwner          string        `validate:"required"`
	RepoName           string        `validate:"required"`
	DiscussionCategory string        `validate:"required"`
	WebsiteRSSURL      string        `validate:"required,http_url"`
	LookbackDays       int           `validate:"gte=0,lte=106751"` // 0 disables the lower bound
	GitHubAPIURL       string        `validate:"required,http_url"`
	GitHubGraphQLURL   string        `validate:"required,http_url"`
	HTTPTimeout        time.Duration `validate:"gt=0"`
	Concurrency        int           `validate:"gte=1"`
	RequestsPerSecond  float64       `validate:"gt=0"`
	SearchPages        int           `validate:"gte=1"`
	FetchDescription   bool
	DryRun             bool
	LogLevel           slog.Level
	LogFormat          string `validate:"oneof=text json"`
	SelectorsPath      string // optional override for the description selectors
}

// Lookback returns the lookback window, or zero when the limit is disabled.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.LookbackDays) * 24 * time.Hour
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first without overriding variables that are
// already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN environment variable is required but not set")
	}

	owner := os.Getenv("REPO_OWNER")
	if owner == "" {
		owner = os.Getenv("GITHUB_REPOSITORY_OWNER")
	}
	name := os.Getenv("REPO_NAME")
	if name == "" {
		if full := os.Getenv("GITHUB_REPOSITORY"); full != "" {
			o, n, ok := strings.Cut(full, "/")
			if !ok || n == "" {
				return nil, fmt.Errorf("invalid GITHUB_REPOSITORY %q: want owner/name", full)
			}
			name = n
			if owner == "" {
				owner = o
			}
		}
	}
	if owner == "" || name == "" {
		return nil, fmt.Errorf("REPO_OWNER and REPO_NAME (or GITHUB_REPOSITORY) are required but not set")
	}

	category := os.Getenv("DISCUSSION_CATEGORY")
	if category == "" {
		return nil, fmt.Errorf("DISCUSSION_CATEGORY environment variable is required but not set")
	}

	rssURL := os.Getenv("WEBSITE_RSS_URL")
	if rssURL == "" {
		return nil, fmt.Errorf("WEBSITE_RSS_URL environment variable is required but not set")
	}

	lookbackDays := DefaultLookbackDays
	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid LOOKBACK_DAYS %q: %w", v, err)
		}
		lookbackDays = parsed
	}

	apiURL := os.Getenv("GITHUB_API_URL")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}

	graphqlURL := os.Getenv("GITHUB_GRAPHQL_URL")
	if graphqlURL == "" {
		graphqlURL = DefaultGraphQLURL
	}

	timeout := DefaultHTTPTimeout
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid HTTP_TIMEOUT %q: %w", v, err)
		}
		timeout = parsed
	}

	concurrency := DefaultConcurrency
	if v := os.Getenv("SYNC_CONCURRENCY"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SYNC_CONCURRENCY %q: %w", v, err)
		}
		concurrency = parsed
	}

	rps := DefaultRequestsPerSecond
	if v := os.Getenv("GITHUB_REQUESTS_PER_SECOND"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid GITHUB_REQUESTS_PER_SECOND %q: %w", v, err)
		}
		rps = parsed
	}

	searchPages := DefaultSearchPages
	if v := os.Getenv("DISCUSSION_SEARCH_PAGES"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DISCUSSION_SEARCH_PAGES %q: %w", v, err)
		}
		searchPages = parsed
	}

	fetchDescription, err := boolEnv("FETCH_POST_DESCRIPTION", true)
	if err != nil {
		return nil, err
	}
	dryRun, err := boolEnv("DRY_RUN", false)
	if err != nil {
		return nil, err
	}

	var level slog.Level
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if err := level.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", v, err)
		}
	}

	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	if logFormat == "" {
		logFormat = "text"
	}

	cfg := &Config{
		SelectorsPath:      os.Getenv("SELECTORS_CONFIG_PATH"),
		GitHubToken:        token,
		RepoOwner:          owner,
		RepoName:           name,
		DiscussionCategory: category,
		WebsiteRSSURL:      rssURL,
		LookbackDays:       lookbackDays,
		GitHubAPIURL:       apiURL,
		GitHubGraphQLURL:   graphqlURL,
		HTTPTimeout:        timeout,
		Concurrency:        concurrency,
		RequestsPerSecond:  rps,
		SearchPages:        searchPages,
		FetchDescription:   fetchDescription,
		DryRun:             dryRun,
		LogLevel:           level,
		LogFormat:          logFormat,
	}

	if err := validator.New().ValidateStruct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return parsed, nil
}
