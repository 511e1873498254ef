package outcome

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies why a fetch did not produce a value.
type Kind string

const (
	// KindTimeout means the operation exceeded its deadline.
	KindTimeout Kind = "timeout"
	// KindElementNotFound means the page loaded but the locator matched nothing.
	KindElementNotFound Kind = "element_not_found"
	// KindParseFailure means text was read but did not have the expected numeric shape.
	KindParseFailure Kind = "parse_failure"
	// KindTransport covers network, DNS and browser process failures.
	KindTransport Kind = "transport"
	// KindConfig means the runtime is misconfigured.
	KindConfig Kind = "config"
)

// Error is the failure side of every fetch. Source names the fetcher
// that produced it (for example "nobitex-api" or "g2g:Kazzak").
type Error struct {
	Kind    Kind
	Source  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Source != "" {
		prefix = fmt.Sprintf("[%s] %s", e.Kind, e.Source)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same fetch may succeed.
// Structural mismatches (missing element, unparsable text) are never retried.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindTransport:
		return true
	default:
		return false
	}
}

func New(kind Kind, source, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Source:  source,
		Message: message,
		Err:     err,
	}
}

func Timeout(source, message string, err error) *Error {
	return New(KindTimeout, source, message, err)
}

func ElementNotFound(source, message string, err error) *Error {
	return New(KindElementNotFound, source, message, err)
}

func ParseFailure(source, message string, err error) *Error {
	return New(KindParseFailure, source, message, err)
}

func Transport(source, message string, err error) *Error {
	return New(KindTransport, source, message, err)
}

func Config(source, message string, err error) *Error {
	return New(KindConfig, source, message, err)
}

// As returns the outcome error wrapped in err, if any.
func As(err error) (*Error, bool) {
	var oe *Error
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

// KindOf returns the kind of err. Unclassified errors count as transport
// failures, except context expiry which is a timeout.
func KindOf(err error) Kind {
	if oe, ok := As(err); ok {
		return oe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindTransport
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if oe, ok := As(err); ok {
		return oe.Retryable()
	}
	return !errors.Is(err, context.Canceled)
}

// WithSource returns err as an *Error tagged with source. Existing outcome
// errors keep their kind and message; anything else is classified with KindOf.
func WithSource(err error, source string) error {
	if err == nil {
		return nil
	}
	if oe, ok := As(err); ok {
		tagged := *oe
		tagged.Source = source
		return &tagged
	}
	return New(KindOf(err), source, "fetch failed", err)
}
