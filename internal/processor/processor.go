package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pauljones0/rss-autogen-giscus/internal/config"
	"github.com/pauljones0/rss-autogen-giscus/internal/models"
	"github.com/pauljones0/rss-autogen-giscus/internal/scraper"
	"github.com/pauljones0/rss-autogen-giscus/internal/util"
)

// maxSummaryRunes bounds the feed summary used as a discussion body.
const maxSummaryRunes = 500

type Processor interface {
	Run(ctx context.Context) (models.SyncResult, error)
}

type SyncProcessor struct {
	feed    FeedSource
	repo    DiscussionRepository
	scraper scraper.Scraper
	config  *config.Config
	now     func() time.Time
}

// New wires a processor. A nil s builds discussion bodies from the feed
// summary only.
func New(feed FeedSource, repo DiscussionRepository, s scraper.Scraper, cfg *config.Config) *SyncProcessor {
	return &SyncProcessor{
		feed:    feed,
		repo:    repo,
		scraper: s,
		config:  cfg,
		now:     time.Now,
	}
}

// candidate is a post that passed filtering, with its position in the feed.
type candidate struct {
	index int
	post  models.CandidatePost
}

// Run performs one sync. The returned error is reserved for failures that
// abort the run; per-entry failures are only recorded in the result.
func (p *SyncProcessor) Run(ctx context.Context) (models.SyncResult, error) {
	var result models.SyncResult

	entries, err := p.feed.Fetch(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to fetch feed: %w", err)
	}
	slog.Info("Fetched feed", "entries", len(entries))

	items := make([]models.ItemResult, len(entries))
	candidates := p.filterCandidates(entries, items)

	var fatal error
	if len(candidates) > 0 {
		fatal = p.syncCandidates(ctx, candidates, items)
	} else {
		slog.Info("No posts within lookback window")
	}

	for _, item := range items {
		if item.Outcome == "" {
			continue
		}
		logOutcome(item)
		result.Record(item)
	}

	slog.Info("Finished sync",
		"created", result.Created,
		"skipped_existing", result.SkippedExisting,
		"skipped_too_old", result.SkippedTooOld,
		"would_create", result.WouldCreate,
		"failed", result.Failed)
	return result, fatal
}

// filterCandidates resolves pathnames and applies the lookback window. Entries
// that do not become candidates get their outcome written to items.
func (p *SyncProcessor) filterCandidates(entries []models.FeedEntry, items []models.ItemResult) []candidate {
	now := p.now()
	window := p.config.Lookback()
	seen := make(map[string]bool)

	var candidates []candidate
	for i, entry := range entries {
		pathname, err := util.ResolvePathname(entry.Link)
		if err != nil {
			items[i] = models.ItemResult{Link: entry.Link, Outcome: models.OutcomeFailed, Err: err}
			continue
		}

		post := models.NewCandidatePost(pathname, entry)
		if !InWindow(post, window, now) {
			items[i] = models.ItemResult{Link: entry.Link, Pathname: pathname, Outcome: models.OutcomeSkippedTooOld}
			continue
		}

		// The first entry for a pathname wins; later ones would race it.
		if seen[pathname] {
			items[i] = models.ItemResult{Link: entry.Link, Pathname: pathname, Outcome: models.OutcomeSkippedExisting}
			continue
		}
		seen[pathname] = true
		candidates = append(candidates, candidate{index: i, post: post})
	}
	return candidates
}

// syncCandidates resolves the target and processes candidates with bounded
// parallelism. Each task writes only its own slot in items.
func (p *SyncProcessor) syncCandidates(ctx context.Context, candidates []candidate, items []models.ItemResult) error {
	target, err := p.repo.ResolveTarget(ctx, p.config.RepoOwner, p.config.RepoName, p.config.DiscussionCategory)
	if err != nil {
		err = fmt.Errorf("failed to resolve discussion target: %w", err)
		for _, c := range candidates {
			items[c.index] = failedItem(c.post, err)
		}
		return err
	}
	slog.Info("Resolved discussion target", "repository", target.FullName(), "category", target.Category, "candidates", len(candidates))

	var authFailed atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)

	for _, c := range candidates {
		g.Go(func() error {
			if authFailed.Load() {
				items[c.index] = failedItem(c.post, fmt.Errorf("not attempted after authentication failure: %w", models.ErrAuth))
				return nil
			}

			item := p.syncCandidate(gctx, target, c.post)
			items[c.index] = item
			if errors.Is(item.Err, models.ErrAuth) {
				authFailed.Store(true)
				return item.Err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("aborting run: %w", err)
	}
	return nil
}

func (p *SyncProcessor) syncCandidate(ctx context.Context, target models.Target, post models.CandidatePost) models.ItemResult {
	existing, err := p.repo.FindDiscussion(ctx, target, post.Pathname)
	if err != nil {
		return failedItem(post, fmt.Errorf("failed to look up discussion: %w", err))
	}
	if existing != nil {
		return models.ItemResult{Link: post.Entry.Link, Pathname: post.Pathname, Outcome: models.OutcomeSkippedExisting, URL: existing.URL}
	}

	body := p.buildBody(ctx, post)

	if p.config.DryRun {
		slog.Debug("Dry run discussion body", "pathname", post.Pathname, "body", body)
		return models.ItemResult{Link: post.Entry.Link, Pathname: post.Pathname, Outcome: models.OutcomeWouldCreate}
	}

	created, err := p.repo.CreateDiscussion(ctx, target, post.Pathname, body)
	if err != nil {
		// Another writer created it between the lookup and the create.
		if errors.Is(err, models.ErrDuplicate) {
			return models.ItemResult{Link: post.Entry.Link, Pathname: post.Pathname, Outcome: models.OutcomeSkippedExisting}
		}
		return failedItem(post, fmt.Errorf("failed to create discussion: %w", err))
	}
	return models.ItemResult{Link: post.Entry.Link, Pathname: post.Pathname, Outcome: models.OutcomeCreated, URL: created.URL}
}

// buildBody returns "<description>\n\n<link>", or just the link when no
// description is available. The page description is preferred over the feed
// summary.
func (p *SyncProcessor) buildBody(ctx context.Context, post models.CandidatePost) string {
	link := strings.TrimSpace(post.Entry.Link)

	var desc string
	if p.scraper != nil && p.config.FetchDescription {
		d, err := p.scraper.FetchDescription(ctx, link)
		if err != nil {
			slog.Warn("Failed to fetch post description", "link", link, "error", err)
		}
		desc = d
	}
	if desc == "" {
		desc = util.Truncate(util.HTMLToText(post.Entry.Summary), maxSummaryRunes)
	}

	if desc == "" {
		return link
	}
	return desc + "\n\n" + link
}

func failedItem(post models.CandidatePost, err error) models.ItemResult {
	return models.ItemResult{Link: post.Entry.Link, Pathname: post.Pathname, Outcome: models.OutcomeFailed, Err: err}
}

func logOutcome(item models.ItemResult) {
	switch item.Outcome {
	case models.OutcomeCreated:
		slog.Info("Created discussion", "pathname", item.Pathname, "url", item.URL)
	case models.OutcomeSkippedExisting:
		slog.Info("Discussion already exists", "pathname", item.Pathname, "url", item.URL)
	case models.OutcomeSkippedTooOld:
		slog.Info("Skipping post outside lookback window", "pathname", item.Pathname)
	case models.OutcomeWouldCreate:
		slog.Info("Would create discussion", "pathname", item.Pathname)
	case models.OutcomeFailed:
		slog.Error("Failed to sync post", "link", item.Link, "pathname", item.Pathname, "error", item.Err)
	}
}
