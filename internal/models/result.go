package models

// Outcome is the result recorded for one feed entry.
type Outcome string

const (
	OutcomeCreated         Outcome = "created"
	OutcomeSkippedExisting Outcome = "skipped-existing"
	OutcomeSkippedTooOld   Outcome = "skipped-too-old"
	OutcomeFailed          Outcome = "failed"
	OutcomeWouldCreate     Outcome = "would-create"
)

// ItemResult records what happened to a single feed entry.
type ItemResult struct {
	Link     string
	Pathname string
	Outcome  Outcome
	URL      string // discussion URL, when known
	Err      error
}

// SyncResult aggregates the outcomes of one run. It is never persisted.
type SyncResult struct {
	Created         int
	SkippedExisting int
	SkippedTooOld   int
	Failed          int
	WouldCreate     int
	Items           []ItemResult
}

// Record appends an item and bumps the matching counter.
func (r *SyncResult) Record(item ItemResult) {
	switch item.Outcome {
	case OutcomeCreated:
		r.Created++
	case OutcomeSkippedExisting:
		r.SkippedExisting++
	case OutcomeSkippedTooOld:
		r.SkippedTooOld++
	case OutcomeFailed:
		r.Failed++
	case OutcomeWouldCreate:
		r.WouldCreate++
	}
	r.Items = append(r.Items, item)
}

// HasFailures reports whether any item failed.
func (r *SyncResult) HasFailures() bool {
	return r.Failed > 0
}
