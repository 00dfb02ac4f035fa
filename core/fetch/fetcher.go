// Package fetch talks to the remote content source. The rest of the system
// only sees the Fetcher interface.
package fetch

import (
	"context"
	"errors"
)

// ErrNotFound means the search produced no usable result.
var ErrNotFound = errors.New("no results found")

// SourceInfo describes the best match for a query.
type SourceInfo struct {
	ID       string
	Title    string
	Duration int // seconds
	URL      string
}

// Fetcher searches the content source and downloads audio.
type Fetcher interface {
	// Search returns the top result for query, or ErrNotFound.
	Search(ctx context.Context, query string) (*SourceInfo, error)

	// Download fetches url into outputTemplate. The template contains a
	// "%(ext)s" placeholder that the fetcher fills with the real extension.
	Download(ctx context.Context, url, outputTemplate string) error
}
