package catalog

import "fmt"

// ValidationError reports missing or malformed caller input. No I/O has been
// attempted when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FetchError reports a failed network load: a non-2xx response, an empty
// body, or a parse that produced no records. An empty catalog is always a
// fetch failure, never a valid state.
type FetchError struct {
	URL    string
	Status int // HTTP status; 0 for transport errors
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: %s (status %d)", e.URL, e.Reason, e.Status)
	}
	return fmt.Sprintf("fetching %s: %s", e.URL, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }
