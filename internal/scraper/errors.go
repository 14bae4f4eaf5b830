package scraper

import "fmt"

// FetchExhaustedError reports a URL whose fetch failed after every retry
// attempt. It propagates out of a detail fetch (caught at the per-record
// boundary) and out of the listing fetch (aborting the run).
type FetchExhaustedError struct {
	URL      string
	Attempts int
	LastErr  error
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.LastErr)
}

func (e *FetchExhaustedError) Unwrap() error {
	return e.LastErr
}

// ExtractionError reports malformed or unexpected HTML for one record or
// one field. It is caught locally; the run continues without that piece.
type ExtractionError struct {
	URL  string
	Part string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s from %s: %v", e.Part, e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
