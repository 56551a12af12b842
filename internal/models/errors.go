package models

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by the pipeline wraps exactly one of
// these so the HTTP layer can pick a status code with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrUpstream     = errors.New("upstream failure")
)

// Input errors
var (
	ErrInvalidDateFormat = fmt.Errorf("%w: dates must use the YYYY-MM-DD format", ErrInvalidInput)
	ErrQueryTooShort     = fmt.Errorf("%w: query must be at least %d characters", ErrInvalidInput, MinQueryLength)
)

// Lookup errors
var (
	ErrNoArticlesFound = fmt.Errorf("%w: no articles matched the query and date range", ErrNotFound)
	ErrResultNotFound  = fmt.Errorf("%w: no stored result for this query", ErrNotFound)
)

// UpstreamError is returned when an external provider (news API, RSS feed,
// result store) fails or answers with something we cannot use.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Service, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Service, msg)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// ClassificationError is returned by a sentiment classifier that could not
// produce a rating for a piece of text.
type ClassificationError struct {
	Model string
	Err   error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification with %s failed: %v", e.Model, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

func (e *ClassificationError) Is(target error) bool { return target == ErrUpstream }
