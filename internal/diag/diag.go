// Package diag implements the diagnostics accumulator used across every
// graph phase in place of exceptions: nodes and subsystems append
// warnings and errors instead of failing the whole call stack, modeled
// on the accumulate-then-inspect idiom the wider engine uses for
// tfdiags.Diagnostics.
package diag

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Severity distinguishes a diagnostic that aborts the current node/phase
// from one that is purely informational.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Diagnostic is a single accumulated entry. Subject identifies what the
// diagnostic is about (a node name, a slot, a resource ID) for display
// purposes; it is optional.
type Diagnostic struct {
	Severity Severity
	Summary  string
	Detail   string
	Subject  string
}

func (d Diagnostic) String() string {
	if d.Subject != "" {
		return fmt.Sprintf("[%s] %s: %s (%s)", d.Severity, d.Subject, d.Summary, d.Detail)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Summary, d.Detail)
}

// Diagnostics is an ordered collection of Diagnostic values. The zero
// value is ready to use.
type Diagnostics []Diagnostic

// Append adds one or more diagnostics and returns the updated slice,
// mirroring the append-and-reassign idiom used elsewhere in the engine.
func (d Diagnostics) Append(more ...Diagnostic) Diagnostics {
	return append(d, more...)
}

// Appendf is a convenience constructor for a single error-severity entry.
func (d Diagnostics) Appendf(subject, summary, format string, args ...interface{}) Diagnostics {
	return append(d, Diagnostic{
		Severity: Error,
		Summary:  summary,
		Detail:   fmt.Sprintf(format, args...),
		Subject:  subject,
	})
}

// Warnf is a convenience constructor for a single warning-severity entry.
func (d Diagnostics) Warnf(subject, summary, format string, args ...interface{}) Diagnostics {
	return append(d, Diagnostic{
		Severity: Warning,
		Summary:  summary,
		Detail:   fmt.Sprintf(format, args...),
		Subject:  subject,
	})
}

// HasErrors reports whether any entry is Error severity.
func (d Diagnostics) HasErrors() bool {
	for _, diag := range d {
		if diag.Severity == Error {
			return true
		}
	}
	return false
}

// Errors returns only the Error-severity entries.
func (d Diagnostics) Errors() Diagnostics {
	var out Diagnostics
	for _, diag := range d {
		if diag.Severity == Error {
			out = append(out, diag)
		}
	}
	return out
}

// Err composes every Error-severity entry into a single error value via
// go-multierror, or nil if there are none.
func (d Diagnostics) Err() error {
	var merr *multierror.Error
	for _, diag := range d {
		if diag.Severity == Error {
			merr = multierror.Append(merr, fmt.Errorf("%s", diag.String()))
		}
	}
	if merr == nil {
		return nil
	}
	return merr.ErrorOrNil()
}

// FromError wraps a plain error as a single Error-severity diagnostic.
func FromError(subject, summary string, err error) Diagnostics {
	if err == nil {
		return nil
	}
	return Diagnostics{{Severity: Error, Summary: summary, Detail: err.Error(), Subject: subject}}
}
