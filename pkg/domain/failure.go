package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// FailureClass tells the retry policy how to react to an error.
type FailureClass int

const (
	// Unclassified errors are treated like Protocol errors.
	Unclassified FailureClass = iota
	// Transient failures are recoverable by reconnecting (connection dropped, timeout).
	Transient
	// Protocol failures are recoverable by retrying without reconnect.
	Protocol
	// Fatal failures cannot succeed under any retry.
	Fatal
)

func (c FailureClass) String() string {
	switch c {
	case Transient:
		return "transient"
	case Protocol:
		return "protocol"
	case Fatal:
		return "fatal"
	}
	return "unclassified"
}

// Failure is an error carrying an explicit classification.
type Failure struct {
	Class FailureClass
	Op    string
	Err   error
}

// NewFailure wraps err with a class. A nil err yields a nil error.
func NewFailure(class FailureClass, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Failure{Class: class, Op: op, Err: err}
}

func (f *Failure) Error() string {
	if f.Op == "" {
		return fmt.Sprintf("%s: %v", f.Class, f.Err)
	}
	return fmt.Sprintf("%s: %s: %v", f.Op, f.Class, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Classify maps an arbitrary error to a FailureClass.
// A takeover is always Fatal; otherwise an explicit Failure in the chain wins over
// the heuristics below.
func Classify(err error) FailureClass {
	if err == nil {
		return Unclassified
	}
	if errors.Is(err, ErrHumanTakeover) {
		return Fatal
	}
	var f *Failure
	if errors.As(err, &f) && f.Class != Unclassified {
		return f.Class
	}
	switch {
	case errors.Is(err, ErrUnknownControlMethod),
		errors.Is(err, ErrResolution):
		return Fatal
	case errors.Is(err, ErrImageTruncated):
		return Protocol
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE):
		return Transient
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return Transient
	}
	return Protocol
}

// TakeoverError is raised once retries are exhausted or a Fatal failure occurs.
// errors.Is(err, ErrHumanTakeover) holds for every TakeoverError.
type TakeoverError struct {
	Op       string
	Attempts int
	Last     FailureClass
	Err      error
}

func (e *TakeoverError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s) (%s): %v: %s", e.Op, e.Attempts, e.Last, e.Err, ErrHumanTakeover)
}

func (e *TakeoverError) Unwrap() []error {
	return []error{ErrHumanTakeover, e.Err}
}

// IsTakeover reports whether err requires operator intervention.
func IsTakeover(err error) bool {
	return errors.Is(err, ErrHumanTakeover)
}
