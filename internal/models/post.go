package models

import (
	"time"
)

// FeedEntry is a single item parsed from the website feed, in feed order.
type FeedEntry struct {
	Title       string
	Link        string
	PublishedAt *time.Time // nil when the feed carries no publish date
	UpdatedAt   *time.Time
	Summary     string
}

// CandidatePost is a feed entry with its resolved discussion title.
type CandidatePost struct {
	Pathname      string
	Entry         FeedEntry
	EffectiveDate time.Time // zero when the entry is undated
}

// NewCandidatePost derives a candidate from a feed entry. The effective date
// prefers the updated timestamp over the published one.
func NewCandidatePost(pathname string, entry FeedEntry) CandidatePost {
	c := CandidatePost{Pathname: pathname, Entry: entry}
	switch {
	case entry.UpdatedAt != nil:
		c.EffectiveDate = *entry.UpdatedAt
	case entry.PublishedAt != nil:
		c.EffectiveDate = *entry.PublishedAt
	}
	return c
}

// Dated reports whether the candidate has a resolvable date.
func (c CandidatePost) Dated() bool {
	return !c.EffectiveDate.IsZero()
}
