// Package faults defines the error taxonomy shared across installwatch and a
// bounded retry helper for transient failure classes.
package faults

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind classifies a fault for retry and reporting decisions.
type Kind string

const (
	KindConfiguration     Kind = "configuration"
	KindFileSystem        Kind = "filesystem"
	KindDocumentParse     Kind = "document_parse"
	KindValidationTimeout Kind = "validation_timeout"
	KindMonitoring        Kind = "monitoring"
	KindPersistence       Kind = "persistence"
	KindUnexpectedState   Kind = "unexpected_state"
)

// transientKinds are retried automatically; everything else surfaces
// immediately.
var transientKinds = map[Kind]bool{
	KindFileSystem:  true,
	KindMonitoring:  true,
	KindPersistence: true,
}

// Fault wraps an underlying error with a Kind.
type Fault struct {
	Kind Kind
	Err  error
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// New creates a fault of the given kind.
func New(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a kind to an existing error. Returns nil if err is nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: kind, Err: err}
}

// KindOf returns the kind of err, or KindUnexpectedState when err carries no
// fault classification.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnexpectedState
}

// IsTransient reports whether err belongs to a retryable class.
func IsTransient(err error) bool {
	return transientKinds[KindOf(err)]
}

const (
	// DefaultAttempts is the bounded retry attempt count.
	DefaultAttempts = 3
	// DefaultDelay is the fixed delay between attempts.
	DefaultDelay = 500 * time.Millisecond
)

// Retry runs fn up to DefaultAttempts times with a fixed delay between
// attempts. Only transient faults are retried; other errors return
// immediately. The last error is returned when all attempts fail.
func Retry(ctx context.Context, fn func() error) error {
	return RetryN(ctx, DefaultAttempts, DefaultDelay, fn)
}

// RetryN is Retry with explicit attempt count and delay.
func RetryN(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var last error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last = fn()
		if last == nil {
			return nil
		}
		if !IsTransient(last) {
			return last
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return last
}
