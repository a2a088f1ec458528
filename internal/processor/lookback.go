package processor

import (
	"time"

	"github.com/pauljones0/rss-autogen-giscus/internal/models"
)

// InWindow reports whether the candidate's effective date lies in
// [now-window, now]. Undated candidates are never in the window. A zero window
// removes the lower bound.
func InWindow(c models.CandidatePost, window time.Duration, now time.Time) bool {
	if !c.Dated() {
		return false
	}
	if c.EffectiveDate.After(now) {
		return false
	}
	if window == 0 {
		return true
	}
	return !c.EffectiveDate.Before(now.Add(-window))
}
