package diag

import (
	"errors"
	"fmt"
)

// Listener receives diagnostics. Returning a non-nil error aborts the
// operation that reported the diagnostic; the error is returned to its
// caller unchanged.
type Listener interface {
	Report(d Diagnostic) error
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(Diagnostic) error

func (f ListenerFunc) Report(d Diagnostic) error { return f(d) }

// Collector records every diagnostic and never aborts.
type Collector struct {
	Diagnostics []Diagnostic
}

func (c *Collector) Report(d Diagnostic) error {
	c.Diagnostics = append(c.Diagnostics, d)
	return nil
}

// Errors returns the ERROR diagnostics in report order.
func (c *Collector) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range c.Diagnostics {
		if d.IsError() {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors reports whether any ERROR diagnostic was collected.
func (c *Collector) HasErrors() bool {
	for _, d := range c.Diagnostics {
		if d.IsError() {
			return true
		}
	}
	return false
}

// Strict records diagnostics like Collector and aborts on the first ERROR
// with an *AbortError.
type Strict struct {
	Collector
}

func (s *Strict) Report(d Diagnostic) error {
	_ = s.Collector.Report(d)
	if d.IsError() {
		return &AbortError{Diagnostic: d}
	}
	return nil
}

// AbortError is returned by Strict for the diagnostic that stopped the
// operation.
type AbortError struct {
	Diagnostic Diagnostic
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("aborted: %s", e.Diagnostic)
}

// IsAbort reports whether err carries an *AbortError.
// Uses errors.As to handle wrapped errors.
func IsAbort(err error) bool {
	var ae *AbortError
	return errors.As(err, &ae)
}
