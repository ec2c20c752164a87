// Package apperr defines the failure kinds shared by the suggestion pipeline.
package apperr

import "errors"

// ErrNotFound is returned when a post, photo, or record does not exist.
var ErrNotFound = errors.New("not found")

// Kind classifies where a pipeline failure originated.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnection
	KindGeneration
	KindSearch
	KindDownload
	KindCompression
	KindPublish
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindGeneration:
		return "generation"
	case KindSearch:
		return "search"
	case KindDownload:
		return "download"
	case KindCompression:
		return "compression"
	case KindPublish:
		return "publish"
	default:
		return "unknown"
	}
}

// Error is a failure tagged with its Kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String() + " failure"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err as a failure of the given kind.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
