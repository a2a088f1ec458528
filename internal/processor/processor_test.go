package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pauljones0/rss-autogen-giscus/internal/config"
	"github.com/pauljones0/rss-autogen-giscus/internal/models"
	"github.com/pauljones0/rss-autogen-giscus/internal/scraper"
)

// --- Mock implementations ---

type mockFeed struct {
	entries []models.FeedEntry
	err     error
}

func (m *mockFeed) Fetch(_ context.Context) ([]models.FeedEntry, error) {
	return m.entries, m.err
}

type mockRepo struct {
	mu          sync.Mutex
	discussions map[string]models.Discussion
	resolveErr  error
	findErr     map[string]error
	createErr   error
	findCalls   int
	createCalls int
	bodies      map[string]string
}

func newMockRepo(existing ...string) *mockRepo {
	m := &mockRepo{
		discussions: make(map[string]models.Discussion),
		findErr:     make(map[string]error),
		bodies:      make(map[string]string),
	}
	for _, title := range existing {
		m.discussions[title] = models.Discussion{ID: "D_" + title, Title: title, URL: "https://github.com/octo/blog/discussions/" + title}
	}
	return m
}

func (m *mockRepo) ResolveTarget(_ context.Context, owner, name, category string) (models.Target, error) {
	if m.resolveErr != nil {
		return models.Target{}, m.resolveErr
	}
	return models.Target{Owner: owner, Name: name, Category: category, RepositoryID: "R_1", CategoryID: "DIC_1"}, nil
}

func (m *mockRepo) FindDiscussion(_ context.Context, _ models.Target, title string) (*models.Discussion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	if err := m.findErr[title]; err != nil {
		return nil, err
	}
	d, ok := m.discussions[title]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *mockRepo) CreateDiscussion(_ context.Context, _ models.Target, title, body string) (models.Discussion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return models.Discussion{}, m.createErr
	}
	if _, exists := m.discussions[title]; exists {
		return models.Discussion{}, models.ErrDuplicate
	}
	d := models.Discussion{ID: "D_" + title, Title: title, URL: "https://github.com/octo/blog/discussions/new" + title}
	m.discussions[title] = d
	m.bodies[title] = body
	return d, nil
}

type mockScraper struct {
	descriptions map[string]string
	err          error
}

func (m *mockScraper) FetchDescription(_ context.Context, pageURL string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.descriptions[pageURL], nil
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := testNow.Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}

func newTestProcessor(feed FeedSource, repo DiscussionRepository, s scraper.Scraper, lookbackDays int) *SyncProcessor {
	cfg := &config.Config{
		RepoOwner:          "octo",
		RepoName:           "blog",
		DiscussionCategory: "Blog Comments",
		LookbackDays:       lookbackDays,
		Concurrency:        2,
		FetchDescription:   true,
	}
	p := New(feed, repo, s, cfg)
	p.now = func() time.Time { return testNow }
	return p
}

func outcomes(result models.SyncResult) []models.Outcome {
	var out []models.Outcome
	for _, item := range result.Items {
		out = append(out, item.Outcome)
	}
	return out
}

func assertOutcomes(t *testing.T, result models.SyncResult, want ...models.Outcome) {
	t.Helper()
	got := outcomes(result)
	if len(got) != len(want) {
		t.Fatalf("Expected outcomes %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Item %d: expected outcome %s, got %s", i, want[i], got[i])
		}
	}
}

// --- Tests ---

func TestRun_LookbackScenario(t *testing.T) {
	feed := &mockFeed{entries: []models.FeedEntry{
		{Title: "Today", Link: "https://blog.example.com/posts/today/", PublishedAt: daysAgo(0)},
		{Title: "Yesterday", Link: "https://blog.example.com/posts/yesterday", PublishedAt: daysAgo(1)},
		{Title: "Old", Link: "https://blog.example.com/posts/old", PublishedAt: daysAgo(40)},
	}}
	repo := newMockRepo("/posts/today")

	p := newTestProcessor(feed, repo, nil, 30)
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	assertOutcomes(t, result, models.OutcomeSkippedExisting, models.OutcomeCreated, models.OutcomeSkippedTooOld)
	if result.Created != 1 || result.SkippedExisting != 1 || result.SkippedTooOld != 1 {
		t.Errorf("Unexpected counts: %+v", result)
	}
	if result.HasFailures() {
		t.Error("Expected no failures")
	}
	if repo.findCalls != 2 {
		t.Errorf("Expected 2 lookups (old post filtered before any call), got %d", repo.findCalls)
	}
}

func TestRun_Idempotent(t *testing.T) {
	feed := &mockFeed{entries: []models.FeedEntry{
		{Link: "https://blog.example.com/a", PublishedAt: daysAgo(1)},
		{Link: "https://blog.example.com/b", PublishedAt: daysAgo(2)},
	}}
	repo := newMockRepo()
	p := newTestProcessor(feed, repo, nil, 7)

	first, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if first.Created != 2 {
		t.Fatalf("Expected 2 created on first run, got %d", first.Created)
	}

	second, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if second.Created != 0 || second.SkippedExisting != 2 {
		t.Errorf("Expected all skipped on second run, got %+v", second)
	}
	if repo.createCalls != 2 {
		t.Errorf("Expected 2 create calls total, got %d", repo.createCalls)
	}
}

func TestRun_InvalidLinkIsolated(t *testing.T) {
	feed := &mockFeed{entries: []models.FeedEntry{
		{Link: "not a url", PublishedAt: daysAgo(0)},
		{Link: "https://blog.example.com", PublishedAt: daysAgo(0)},
		{Link: "https://blog.example.com/valid", PublishedAt: daysAgo(0)},
	}}
	repo := newMockRepo()

	p := newTestProcessor(feed, repo, nil, 7)
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	assertOutcomes(t, result, models.OutcomeFailed, models.OutcomeFailed, models.OutcomeCreated)
	if !errors.Is(result.Items[0].Err, models.ErrInvalidLink) {
		t.Errorf("Expected ErrInvalidLink, got %v", result.Items[0].Err)
	}
	if !result.HasFailures() {
		t.Error("Expected the run to report failures")
	}
	if _, ok := repo.discussions["/valid"]; !ok {
		t.Error("Expected the valid entry to be created")
	}
}

func TestRun_ItemErrorIsolated(t *testing.T) {
	feed := &mockFeed{entries: []models.FeedEntry{
		{Link: "https://blog.example.com/broken", PublishedAt: daysAgo(0)},
		{Link: "https://blog.example.com/fine", PublishedAt: daysAgo(0)},
	}}
	repo := newMockRepo()
	repo.findErr["/broken"] = fmt.Errorf("list discussions: %w", models.ErrTransport)

	p := newTestProcessor(feed, repo, nil, 7)
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	assertOutcomes(t, result, models.OutcomeFailed, models.OutcomeCreated)
	if !errors.Is(result.Items[0].Err, models.ErrTransport) {
		t.Errorf("Expected ErrTransport, got %v", result.Items[0].Err)
	}
}

func TestRun_DuplicateOnCreateIsSkip(t *testing.T) {
	feed := &mockFeed{entries: []models.FeedEntry{
		{Link: "https://blog.example.com/race", PublishedAt: daysAgo(0)},
	}}
	repo := newMockRepo()
	repo.createErr = fmt.Errorf("create discussion: %w", models.ErrDuplicate)

	p := newTestProcessor(feed, repo, nil, 7)
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	assertOutcomes(t, result, models.OutcomeSkippedExisting)
	if result.HasFailures() {
		t.Error("Duplicate on create must not count as a failure")
	}
}

func TestRun_DuplicatePathnamesInFeed(t *testing.T) {
	feed := &mockFeed{entries: []models.FeedEntry{
		{Link: "https://blog.example.com/same/", PublishedAt: daysAgo(0)},
		{Link: "https://blog.example.com/same?utm=x", PublishedAt: daysAgo(1)},
	}}
	repo := newMockRepo()

	p := newTestProcessor(feed, repo, nil, 7)
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	assertOutcomes(t, result, models.OutcomeCreated, models.OutcomeSkippedExisting)
	if repo.createCalls != 1 {
		t.Errorf("Expected 1 create call, got %d", repo.createCalls)
	}
}

func TestRun_InvalidToken(t *testing.T) {
	feed := &mockFeed{entries: []models.FeedEntry{
		{Link: "https://blog.example.com/a", PublishedAt: daysAgo(0)},
		{Link: "https://blog.example.com/b", PublishedAt: daysAgo(0)},
	}}

	t.Run("resolve", func(t *testing.T) {
		repo := newMockRepo()
		repo.resolveErr = fmt.Errorf("get repository: %w", models.ErrAuth)

		p := newTestProcessor(feed, repo, nil, 7)
		result, err := p.Run(context.Background())
		if !errors.Is(err, models.ErrAuth) {
			t.Fatalf("Expected ErrAuth, got %v", err)
		}
		if result.Created != 0 || repo.createCalls != 0 {
			t.Errorf("Expected no discussions created, got %d", result.Created)
		}
		if result.Failed != 2 {
			t.Errorf("Expected both candidates recorded as failed, got %d", result.Failed)
		}
		assertOutcomes(t, result, models.OutcomeFailed, models.OutcomeFailed)
		for _, item := range result.Items {
			if !errors.Is(item.Err, models.ErrAuth) {
				t.Errorf("Expected item error to wrap ErrAuth, got %v", item.Err)
			}
		}
	})

	t.Run("find", func(t *testing.T) {
		repo := newMockRepo()
		authErr := fmt.Errorf("list discussions: %w", models.ErrAuth)
		repo.findErr["/a"] = authErr
		repo.findErr["/b"] = authErr

		p := newTestProcessor(feed, repo, nil, 7)
		p.config.Concurrency = 1
		result, err := p.Run(context.Background())
		if !errors.Is(err, models.ErrAuth) {
			t.Fatalf("Expected ErrAuth, got %v", err)
		}
		assertOutcomes(t, result, models.OutcomeFailed, models.OutcomeFailed)
		if repo.findCalls != 1 {
			t.Errorf("Expected the run to stop after the first auth failure, got %d lookups", repo.findCalls)
		}
		if repo.createCalls != 0 {
			t.Errorf("Expected no create calls, got %d", repo.createCalls)
		}
	})
}

func TestRun_FeedFetchFailure(t *testing.T) {
	feed := &mockFeed{err: fmt.Errorf("%w: status 500", models.ErrFetch)}
	repo := newMockRepo()

	p := newTestProcessor(feed, repo, nil, 7)
	result, err := p.Run(context.Background())
	if !errors.Is(err, models.ErrFetch) {
		t.Fatalf("Expected ErrFetch, got %v", err)
	}
	if len(result.Items) != 0 || repo.findCalls != 0 {
		t.Error("Expected no processing after a feed failure")
	}
}

func TestRun_NoCandidatesSkipsResolve(t *testing.T) {
	feed := &mockFeed{entries: []models.FeedEntry{
		{Link: "https://blog.example.com/old", PublishedAt: daysAgo(100)},
		{Link: "https://blog.example.com/undated"},
	}}
	repo := newMockRepo()
	repo.resolveErr = errors.New("should not be called")

	p := newTestProcessor(feed, repo, nil, 7)
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	assertOutcomes(t, result, models.OutcomeSkippedTooOld, models.OutcomeSkippedTooOld)
}

func TestRun_DryRun(t *testing.T) {
	feed := &mockFeed{entries: []models.FeedEntry{
		{Link: "https://blog.example.com/new", PublishedAt: daysAgo(0)},
		{Link: "https://blog.example.com/existing", PublishedAt: daysAgo(0)},
	}}
	repo := newMockRepo("/existing")

	p := newTestProcessor(feed, repo, nil, 7)
	p.config.DryRun = true
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	assertOutcomes(t, result, models.OutcomeWouldCreate, models.OutcomeSkippedExisting)
	if repo.createCalls != 0 {
		t.Errorf("Expected no create calls in dry run, got %d", repo.createCalls)
	}
	if result.HasFailures() {
		t.Error("Dry run creations must not count as failures")
	}
}

func TestRun_DiscussionBody(t *testing.T) {
	long := strings.Repeat("word ", 200)
	feed := &mockFeed{entries: []models.FeedEntry{
		{Link: "https://blog.example.com/scraped", PublishedAt: daysAgo(0), Summary: "<p>Feed summary</p>"},
		{Link: "https://blog.example.com/summary", PublishedAt: daysAgo(0), Summary: "<p>Feed <b>summary</b></p>"},
		{Link: "https://blog.example.com/bare", PublishedAt: daysAgo(0)},
		{Link: "https://blog.example.com/long", PublishedAt: daysAgo(0), Summary: long},
	}}
	repo := newMockRepo()
	s := &mockScraper{descriptions: map[string]string{
		"https://blog.example.com/scraped": "Page description.",
	}}

	p := newTestProcessor(feed, repo, s, 7)
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	tests := map[string]string{
		"/scraped": "Page description.\n\nhttps://blog.example.com/scraped",
		"/summary": "Feed summary\n\nhttps://blog.example.com/summary",
		"/bare":    "https://blog.example.com/bare",
	}
	for title, want := range tests {
		if got := repo.bodies[title]; got != want {
			t.Errorf("Body for %s = %q, want %q", title, got, want)
		}
	}

	desc, _, ok := strings.Cut(repo.bodies["/long"], "\n\n")
	if !ok {
		t.Fatal("Expected a description in the long body")
	}
	if n := len([]rune(desc)); n > maxSummaryRunes+1 {
		t.Errorf("Expected summary truncated to %d runes, got %d", maxSummaryRunes, n)
	}
}

func TestRun_ScraperFailureFallsBack(t *testing.T) {
	feed := &mockFeed{entries: []models.FeedEntry{
		{Link: "https://blog.example.com/post", PublishedAt: daysAgo(0), Summary: "Summary"},
	}}
	repo := newMockRepo()
	s := &mockScraper{err: errors.New("timeout")}

	p := newTestProcessor(feed, repo, s, 7)
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	assertOutcomes(t, result, models.OutcomeCreated)
	if got := repo.bodies["/post"]; got != "Summary\n\nhttps://blog.example.com/post" {
		t.Errorf("Unexpected body %q", got)
	}
}

func TestInWindow(t *testing.T) {
	tests := []struct {
		name   string
		date   *time.Time
		window time.Duration
		want   bool
	}{
		{name: "now", date: daysAgo(0), window: 24 * time.Hour, want: true},
		{name: "exactly at boundary", date: daysAgo(1), window: 24 * time.Hour, want: true},
		{name: "just outside", date: daysAgo(2), window: 24 * time.Hour, want: false},
		{name: "future", date: daysAgo(-1), window: 24 * time.Hour, want: false},
		{name: "undated", date: nil, window: 24 * time.Hour, want: false},
		{name: "zero window keeps old posts", date: daysAgo(3650), window: 0, want: true},
		{name: "zero window still rejects future", date: daysAgo(-1), window: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := models.NewCandidatePost("/p", models.FeedEntry{PublishedAt: tt.date})
			if got := InWindow(post, tt.window, testNow); got != tt.want {
				t.Errorf("InWindow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInWindow_PrefersUpdatedDate(t *testing.T) {
	post := models.NewCandidatePost("/p", models.FeedEntry{PublishedAt: daysAgo(60), UpdatedAt: daysAgo(1)})
	if !InWindow(post, 7*24*time.Hour, testNow) {
		t.Error("Expected the updated date to bring the post into the window")
	}
}
