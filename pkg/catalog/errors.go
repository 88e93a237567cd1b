package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery is returned when Search is called with a blank query
	// or a page below 1. No request is sent.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNetwork means the request could not complete.
	ErrNetwork = errors.New("network failure")
	// ErrRemote means the catalog answered with a non-success status.
	ErrRemote = errors.New("remote error")
	// ErrMalformed means the response body could not be decoded into the
	// expected shape.
	ErrMalformed = errors.New("malformed response")
	// ErrNoEditions is returned by FirstEdition when the work lists none.
	ErrNoEditions = errors.New("no editions")
)

// RemoteError carries the status code of a failed catalog response. It
// matches ErrRemote with errors.Is.
type RemoteError struct {
	Endpoint   string
	StatusCode int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: catalog returned status %d", e.Endpoint, e.StatusCode)
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// Kind names the class of a catalog error: "invalid_query", "network",
// "remote" or "malformed". It returns "" for nil and "unknown" for anything
// outside the catalog taxonomy.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrRemote):
		return "remote"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	}
	return "unknown"
}
