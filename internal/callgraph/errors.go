package callgraph

import "errors"

var (
	// ErrInvalidInput reports a request that cannot be served at all: a
	// relative or missing base path, or a malformed function name.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIndexUnavailable reports that the cross-reference index could not
	// be built or queried. Resolution recovers by falling back to text search.
	ErrIndexUnavailable = errors.New("symbol index unavailable")

	// ErrFileUnreadable reports a source file that could not be read during
	// containing-function resolution. The caller becomes UnknownCaller.
	ErrFileUnreadable = errors.New("source file unreadable")
)
