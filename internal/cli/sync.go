package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/pauljones0/rss-autogen-giscus/internal/config"
	"github.com/pauljones0/rss-autogen-giscus/internal/discussions"
	"github.com/pauljones0/rss-autogen-giscus/internal/feed"
	"github.com/pauljones0/rss-autogen-giscus/internal/processor"
	"github.com/pauljones0/rss-autogen-giscus/internal/scraper"
)

// ErrItemsFailed is returned when the run completed but some posts failed.
var ErrItemsFailed = errors.New("one or more posts failed to sync")

func syncAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	slog.SetDefault(newLogger(cfg, cmd.ErrOrStderr()))

	p, err := buildProcessor(cfg)
	if err != nil {
		return err
	}

	slog.Info("Starting sync",
		"version", Version,
		"feed", cfg.WebsiteRSSURL,
		"repository", cfg.RepoOwner+"/"+cfg.RepoName,
		"category", cfg.DiscussionCategory,
		"lookback_days", cfg.LookbackDays,
		"dry_run", cfg.DryRun)

	result, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%w: %d of %d", ErrItemsFailed, result.Failed, len(result.Items))
	}
	return nil
}

// applyFlags lets explicitly set flags override the environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("dry-run") {
		cfg.DryRun = dryRun
	}
	if flags.Changed("lookback-days") {
		if lookbackDays < 0 || lookbackDays > config.MaxLookbackDays {
			return fmt.Errorf("invalid --lookback-days %d: must be between 0 and %d", lookbackDays, config.MaxLookbackDays)
		}
		cfg.LookbackDays = lookbackDays
	}
	return nil
}

func buildProcessor(cfg *config.Config) (*processor.SyncProcessor, error) {
	repo, err := discussions.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create discussions client: %w", err)
	}

	f := feed.New(cfg.WebsiteRSSURL, cfg.HTTPTimeout)

	var s scraper.Scraper
	if cfg.FetchDescription {
		feedURL, err := url.Parse(cfg.WebsiteRSSURL)
		if err != nil {
			return nil, fmt.Errorf("invalid WEBSITE_RSS_URL: %w", err)
		}
		s = scraper.New(cfg.HTTPTimeout, scraper.LoadConfig(cfg.SelectorsPath), feedURL.Hostname())
	}

	return processor.New(f, repo, s, cfg), nil
}
