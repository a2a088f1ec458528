// Package discussions talks to GitHub Discussions: it resolves the target
// repository and category, looks discussions up by title, and creates them.
package discussions

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	gh "github.com/google/go-github/v80/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/pauljones0/rss-autogen-giscus/internal/config"
	"github.com/pauljones0/rss-autogen-giscus/internal/models"
)

const pageSize = 100

type Client struct {
	gql         *githubv4.Client
	rest        *gh.Client
	limiter     *rate.Limiter
	searchPages int
}

// New builds REST and GraphQL clients sharing one authenticated http.Client.
func New(cfg *config.Config) (*Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &apiTransport{
			base: &oauth2.Transport{Source: ts, Base: http.DefaultTransport},
		},
	}

	rest := gh.NewClient(httpClient)
	baseURL, err := url.Parse(cfg.GitHubAPIURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL %q: %w", cfg.GitHubAPIURL, err)
	}
	rest.BaseURL = baseURL

	return &Client{
		gql:         githubv4.NewEnterpriseClient(cfg.GitHubGraphQLURL, httpClient),
		rest:        rest,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		searchPages: cfg.SearchPages,
	}, nil
}

type pageInfo struct {
	EndCursor   githubv4.String
	HasNextPage bool
}

type discussionNode struct {
	ID       githubv4.ID
	Title    string
	URL      string
	Category struct {
		ID githubv4.ID
	}
}

type categoriesQuery struct {
	Repository *struct {
		DiscussionCategories struct {
			Nodes []struct {
				ID   githubv4.ID
				Name string
				Slug string
			}
			PageInfo pageInfo
		} `graphql:"discussionCategories(first: $first, after: $cursor)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

type discussionsQuery struct {
	Repository *struct {
		Discussions struct {
			Nodes    []discussionNode
			PageInfo pageInfo
		} `graphql:"discussions(first: $first, after: $cursor, orderBy: {field: CREATED_AT, direction: DESC})"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

func (n discussionNode) toModel() models.Discussion {
	return models.Discussion{ID: idString(n.ID), Title: n.Title, URL: n.URL}
}

// ResolveTarget looks up the node IDs of the repository and of the discussion
// category, which is matched by exact name and then by slug.
func (c *Client) ResolveTarget(ctx context.Context, owner, name, category string) (models.Target, error) {
	target := models.Target{Owner: owner, Name: name, Category: category}

	if err := c.limiter.Wait(ctx); err != nil {
		return target, wrapError(err, "rate limit wait")
	}
	repo, _, err := c.rest.Repositories.Get(ctx, owner, name)
	if err != nil {
		return target, wrapError(err, "get repository "+target.FullName())
	}
	if !repo.GetHasDiscussions() {
		slog.Warn("Discussions may be disabled for repository", "repository", target.FullName())
	}
	target.RepositoryID = repo.GetNodeID()

	vars := map[string]any{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(name),
		"first":  githubv4.Int(pageSize),
		"cursor": (*githubv4.String)(nil),
	}

	var bySlug string
	for {
		var q categoriesQuery
		if err := c.limiter.Wait(ctx); err != nil {
			return target, wrapError(err, "rate limit wait")
		}
		if err := c.gql.Query(ctx, &q, vars); err != nil {
			return target, wrapError(err, "list discussion categories")
		}
		if q.Repository == nil {
			return target, fmt.Errorf("list discussion categories: %w: %s", models.ErrRepositoryNotFound, target.FullName())
		}

		for _, node := range q.Repository.DiscussionCategories.Nodes {
			if node.Name == category {
				target.CategoryID = idString(node.ID)
				return target, nil
			}
			if bySlug == "" && node.Slug == category {
				bySlug = idString(node.ID)
			}
		}

		info := q.Repository.DiscussionCategories.PageInfo
		if !info.HasNextPage {
			break
		}
		vars["cursor"] = githubv4.NewString(info.EndCursor)
	}

	if bySlug != "" {
		target.CategoryID = bySlug
		return target, nil
	}
	return target, fmt.Errorf("%w: category %q in %s", models.ErrRepositoryNotFound, category, target.FullName())
}

// FindDiscussion returns the discussion in the target category whose title is
// exactly title, or nil. Discussions are scanned newest first; running out of
// pages before the list ends is an error rather than a miss.
func (c *Client) FindDiscussion(ctx context.Context, target models.Target, title string) (*models.Discussion, error) {
	vars := map[string]any{
		"owner":  githubv4.String(target.Owner),
		"name":   githubv4.String(target.Name),
		"first":  githubv4.Int(pageSize),
		"cursor": (*githubv4.String)(nil),
	}

	for page := 0; page < c.searchPages; page++ {
		var q discussionsQuery
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, wrapError(err, "rate limit wait")
		}
		if err := c.gql.Query(ctx, &q, vars); err != nil {
			return nil, wrapError(err, "list discussions")
		}
		if q.Repository == nil {
			return nil, fmt.Errorf("list discussions: %w: %s", models.ErrRepositoryNotFound, target.FullName())
		}

		for _, node := range q.Repository.Discussions.Nodes {
			if node.Title == title && idString(node.Category.ID) == target.CategoryID {
				d := node.toModel()
				return &d, nil
			}
		}

		info := q.Repository.Discussions.PageInfo
		if !info.HasNextPage {
			return nil, nil
		}
		vars["cursor"] = githubv4.NewString(info.EndCursor)
	}

	// An unscanned older discussion may still hold this title, so creating
	// here could duplicate it.
	return nil, fmt.Errorf("%w: search limit of %d pages reached looking for %q", models.ErrTransport, c.searchPages, title)
}

// CreateDiscussion creates a discussion. It is not idempotent: callers check
// FindDiscussion first.
func (c *Client) CreateDiscussion(ctx context.Context, target models.Target, title, body string) (models.Discussion, error) {
	var m struct {
		CreateDiscussion struct {
			Discussion *discussionNode
		} `graphql:"createDiscussion(input: $input)"`
	}
	input := githubv4.CreateDiscussionInput{
		RepositoryID: githubv4.ID(target.RepositoryID),
		CategoryID:   githubv4.ID(target.CategoryID),
		Title:        githubv4.String(title),
		Body:         githubv4.String(body),
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return models.Discussion{}, wrapError(err, "rate limit wait")
	}
	if err := c.gql.Mutate(ctx, &m, input, nil); err != nil {
		return models.Discussion{}, wrapError(err, "create discussion "+title)
	}
	if m.CreateDiscussion.Discussion == nil {
		return models.Discussion{}, fmt.Errorf("create discussion %s: %w: empty payload", title, models.ErrTransport)
	}
	return m.CreateDiscussion.Discussion.toModel(), nil
}

func idString(id githubv4.ID) string {
	s, _ := id.(string)
	return s
}
