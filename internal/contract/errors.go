package contract

import "errors"

// ErrKind is the closed taxonomy of error kinds a pipeline invocation can
// fail with. It is carried on every sentinel error below so callers can
// branch on kind via errors.Is without string matching.
type ErrKind string

// Recognized error kinds.
const (
	KindInvalidWindow     ErrKind = "invalid_window"
	KindInvalidCommitRef  ErrKind = "invalid_commit_ref"
	KindWindowTooLarge    ErrKind = "window_too_large"
	KindRepoNotFound      ErrKind = "repo_not_found"
	KindRepoAccessError   ErrKind = "repo_access_error"
	KindDeadlineExceeded  ErrKind = "deadline_exceeded"
	KindOutOfMemory       ErrKind = "out_of_memory"
	KindAnalyzerPartial   ErrKind = "analyzer_partial"
)

// KindedError pairs an error kind with an underlying cause.
type KindedError struct {
	Kind ErrKind
	Err  error
}

func (e *KindedError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *KindedError) Unwrap() error { return e.Err }

// Is reports kind equality so errors.Is(err, ErrRepoNotFound) works
// regardless of the wrapped cause.
func (e *KindedError) Is(target error) bool {
	other, ok := target.(*KindedError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// Kind extracts the ErrKind carried by err, if any, via errors.As.
func Kind(err error) (ErrKind, bool) {
	var ke *KindedError
	if errors.As(err, &ke) {
		return ke.Kind, true
	}
	return "", false
}

// Sentinel errors for errors.Is comparisons; wrap with WithKind or fmt.Errorf("%w", ...).
// An empty window is explicitly not an error, so there is no ErrWindowEmpty
// sentinel; the repository layer returns a valid, empty dataset instead.
var (
	ErrRepoNotFound     = &KindedError{Kind: KindRepoNotFound}
	ErrRepoAccess       = &KindedError{Kind: KindRepoAccessError}
	ErrInvalidWindow    = &KindedError{Kind: KindInvalidWindow}
	ErrWindowTooLarge   = &KindedError{Kind: KindWindowTooLarge}
	ErrInvalidCommitRef = &KindedError{Kind: KindInvalidCommitRef}
	ErrDeadlineExceeded = &KindedError{Kind: KindDeadlineExceeded}
)

// WithKind wraps err with the given kind, preserving it for errors.Is/As.
func WithKind(kind ErrKind, err error) error {
	return &KindedError{Kind: kind, Err: err}
}
