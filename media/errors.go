package media

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSelectionTimeout is returned when nobody picks an ambiguous candidate in time.
	ErrSelectionTimeout = errors.New("selection timed out")
	// ErrSelectionCancelled is returned when the requester dismisses the prompt.
	ErrSelectionCancelled = errors.New("selection cancelled")
)

// ResolutionError means a catalog or metadata service could not be reached or
// answered with something unusable.
type ResolutionError struct {
	Op  string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution failed (%s): %v", e.Op, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// NotFoundError means a link did not resolve to any track or group.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("nothing found for %s", e.URL)
}

// OutOfRangeError is returned by queue index operations. Index is 1-based.
type OutOfRangeError struct {
	Index int
	Len   int
}

func (e *OutOfRangeError) Error() string {
	if e.Len == 0 {
		return fmt.Sprintf("position %d is out of range: the queue is empty", e.Index)
	}
	return fmt.Sprintf("position %d is out of range (1-%d)", e.Index, e.Len)
}

// DurationExceededError rejects a track longer than the configured limit.
type DurationExceededError struct {
	Title    string
	Duration time.Duration
	Limit    time.Duration
}

func (e *DurationExceededError) Error() string {
	return fmt.Sprintf("%s is %s long, the limit is %s", e.Title, FormatTimestamp(e.Duration), FormatTimestamp(e.Limit))
}

// UnavailableMediaError means a stream was resolved but could not be played.
type UnavailableMediaError struct {
	Title string
	Err   error
}

func (e *UnavailableMediaError) Error() string {
	return fmt.Sprintf("%s is unavailable: %v", e.Title, e.Err)
}

func (e *UnavailableMediaError) Unwrap() error { return e.Err }

// CheckDuration returns a DurationExceededError when t is longer than limit.
// A zero limit or unknown duration always passes.
func CheckDuration(t *TrackInfo, limit time.Duration) error {
	if limit <= 0 || t.Duration <= limit {
		return nil
	}
	return &DurationExceededError{Title: t.Title, Duration: t.Duration, Limit: limit}
}
