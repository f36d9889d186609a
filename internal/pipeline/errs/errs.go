// Package errs classifies pipeline errors into the boundary taxonomy stage
// workers use to decide whether to retry: input errors, transient
// infrastructure errors, permanent infrastructure errors, and programming
// errors, plus the caller-facing classes surfaced by facades.
package errs

import (
	"errors"
	"fmt"
)

// Class is one of the boundary error classes.
type Class int

const (
	// ClassInternal covers anything not otherwise classified.
	ClassInternal Class = iota
	ClassInvalidInput
	ClassNotFound
	ClassUnauthorized
	ClassRateLimited
	// ClassTransient marks infrastructure failures worth retrying
	// (blob timeout, DB deadlock, vector-index 5xx, embedder timeout).
	ClassTransient
	// ClassPermanent marks failures that should be treated as the stage
	// having already succeeded (e.g. a duplicate-chunk-index constraint).
	ClassPermanent
)

func (c Class) String() string {
	switch c {
	case ClassInvalidInput:
		return "invalid_input"
	case ClassNotFound:
		return "not_found"
	case ClassUnauthorized:
		return "unauthorized"
	case ClassRateLimited:
		return "rate_limited"
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	default:
		return "internal"
	}
}

// classified wraps an error with an explicit class so Classify doesn't have
// to guess from sentinel comparisons alone.
type classified struct {
	class Class
	err   error
}

func (c *classified) Error() string { return c.err.Error() }
func (c *classified) Unwrap() error { return c.err }

// Wrap annotates err with an explicit class. Use at the point an error is
// produced, when the producer knows more than a caller classifying
// after the fact ever could.
func Wrap(class Class, err error) error {
	if err == nil {
		return nil
	}
	return &classified{class: class, err: err}
}

// Wrapf is Wrap with fmt.Errorf-style formatting.
func Wrapf(class Class, format string, args ...any) error {
	return Wrap(class, fmt.Errorf(format, args...))
}

// Classify returns the class attached to err via Wrap, or ClassInternal if
// none was attached. Retriable() is almost always the more useful query.
func Classify(err error) Class {
	var c *classified
	if errors.As(err, &c) {
		return c.class
	}
	return ClassInternal
}

// Retriable reports whether a stage worker should retry on this error.
// Only ClassTransient is retriable; permanent and input errors terminate
// the job immediately, and unclassified errors are treated as
// non-retriable programming errors rather than looped on forever.
func Retriable(err error) bool {
	return Classify(err) == ClassTransient
}

// Idempotent reports whether err represents a stage that has, in effect,
// already succeeded (a duplicate-key constraint on a re-run of an
// at-least-once delivery) and should be treated as success rather than
// failure.
func Idempotent(err error) bool {
	return Classify(err) == ClassPermanent
}
