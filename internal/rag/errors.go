package rag

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by the pipeline stage that produced it.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindRetrieval
	KindGeneration
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRetrieval:
		return "retrieval"
	case KindGeneration:
		return "generation"
	default:
		return "unknown"
	}
}

// ErrEmptyQuestion is wrapped by the validation error for blank questions.
var ErrEmptyQuestion = errors.New("question must not be empty")

// Error is returned by Service for every failed request.
type Error struct {
	Kind Kind
	Op   string // failing step, e.g. "embed question"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
