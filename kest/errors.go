package kest

import (
	"errors"
	"fmt"

	"github.com/kestcalc/kestcalc/date"
)

type ErrKind int

const (
	// Malformed or inconsistent configuration or input record. The
	// record (or security) is skipped; the run continues.
	ValidationError ErrKind = iota + 1
	// The replay reached an impossible state, e.g. a sell exceeding the
	// held quantity. Aborts that security's computation only.
	DataIntegrityError
	// No exchange rate published for a needed (date, currency) pair.
	// Fatal for the affected security; there is no sensible fallback.
	RateUnavailableError
	// Malformed decimal or date in input. Treated like a validation
	// failure by callers.
	ConversionError
)

func (k ErrKind) String() string {
	switch k {
	case ValidationError:
		return "validation"
	case DataIntegrityError:
		return "data integrity"
	case RateUnavailableError:
		return "rate unavailable"
	case ConversionError:
		return "conversion"
	default:
		return "unknown"
	}
}

// Error is the single error type emitted by the core. Every instance
// names the security and event date so the user can find the offending
// input.
type Error struct {
	Kind ErrKind
	ISIN string
	Date date.Date
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s error", e.Kind)
	if e.ISIN != "" {
		s += " for " + e.ISIN
	}
	if !e.Date.IsZero() {
		s += " on " + e.Date.String()
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewErrorf(kind ErrKind, isin string, d date.Date, format string, v ...interface{}) *Error {
	return &Error{Kind: kind, ISIN: isin, Date: d, Msg: fmt.Sprintf(format, v...)}
}

func WrapError(kind ErrKind, isin string, d date.Date, err error) *Error {
	return &Error{Kind: kind, ISIN: isin, Date: d, Err: err}
}

// IsKind reports whether err is (or wraps) a core Error of the given kind.
func IsKind(err error, kind ErrKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
