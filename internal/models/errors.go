package models

import "errors"

// Feed-level errors abort the whole run.
var (
	ErrFetch = errors.New("feed fetch failed")
	ErrParse = errors.New("feed parse failed")
)

// Item-level errors are recorded against a single candidate.
var (
	ErrInvalidLink        = errors.New("invalid link")
	ErrAuth               = errors.New("github authentication failed")
	ErrRepositoryNotFound = errors.New("repository or category not found")
	ErrTransport          = errors.New("github transport error")
)

// ErrDuplicate is returned when the remote rejects a discussion because one
// with the same title already exists.
var ErrDuplicate = errors.New("discussion already exists")
