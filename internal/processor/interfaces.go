package processor

import (
	"context"

	"github.com/pauljones0/rss-autogen-giscus/internal/models"
)

// FeedSource abstracts the feed adapter.
type FeedSource interface {
	Fetch(ctx context.Context) ([]models.FeedEntry, error)
}

// DiscussionRepository abstracts the remote discussion store.
type DiscussionRepository interface {
	ResolveTarget(ctx context.Context, owner, name, category string) (models.Target, error)
	FindDiscussion(ctx context.Context, target models.Target, title string) (*models.Discussion, error)
	CreateDiscussion(ctx context.Context, target models.Target, title, body string) (models.Discussion, error)
}
