// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by pipeline triggers.
var (
	// ErrInvalidTransition is returned when a trigger is called outside its
	// source state. The state is left unchanged.
	ErrInvalidTransition = errors.New("invalid pipeline transition")

	// ErrStale is returned when a stage finishes after the session it
	// belonged to was reset or replaced. Its result is discarded.
	ErrStale = errors.New("stage result belongs to an abandoned session")

	// ErrEmptyNotes is the generation failure for a blank response.
	ErrEmptyNotes = errors.New("generation returned no notes")

	// ErrPanic wraps a panic raised by an extractor, generator or renderer.
	// The panic fails the stage like any other error.
	ErrPanic = errors.New("stage panicked")
)

// ValidationError rejects a selection before any state change.
type ValidationError struct {
	MediaType string
	Accepted  []string
}

func (e *ValidationError) Error() string {
	mt := e.MediaType
	if mt == "" {
		mt = "unknown"
	}
	return fmt.Sprintf("unsupported file type %s: expected %s", mt, strings.Join(e.Accepted, " or "))
}

// StageError is a failure captured from one pipeline stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
