// Package errors defines the error kinds shared across the spectral memory
// graph packages.
//
// Every failure that can cross a package boundary is wrapped in a *Error
// carrying one of the Kind values below, so callers can branch on errors.Is
// / errors.As instead of matching message strings.
package errors

import "fmt"

// Kind classifies a failure so callers can decide whether to retry, degrade,
// or surface the error to a human.
type Kind string

const (
	// InvalidConfig covers rejected segmenter modes, malformed regex
	// patterns, malformed temporal timestamps, and unsupported preset names.
	InvalidConfig Kind = "invalid_config"
	// NotInitialized is returned when embed_one/embed_batch is called before
	// the embedder pool has been initialized.
	NotInitialized Kind = "not_initialized"
	// EmbedFailure covers underlying model errors or output shape mismatches.
	EmbedFailure Kind = "embed_failure"
	// IoFailure covers snapshot read/write failures.
	IoFailure Kind = "io_failure"
	// DecodeFailure means the snapshot is not a valid graph file: missing
	// required fields or an incompatible format_version.
	DecodeFailure Kind = "decode_failure"
	// NotFound means a requested note_id is absent from the graph.
	NotFound Kind = "not_found"
	// SpectralFailure means the primary eigensolver failed and the dense
	// fallback also failed.
	SpectralFailure Kind = "spectral_failure"
)

// Error wraps an underlying error with a Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, allowing
// errors.Is(err, errors.New("", SomeKind, nil)) style checks. To read the
// Kind of an error directly, use Of below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error for the given op/kind, wrapping err (which may be
// nil).
func New(op string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Of reports the Kind of err if it is (or wraps) an *Error, and ok=false
// otherwise.
func Of(err error) (Kind, bool) {
	var e *Error
	if as(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// as is a tiny local errors.As to avoid importing the stdlib package name
// "errors" twice under an alias at every call site.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
