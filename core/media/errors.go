package media

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the fetcher had no result for the query.
	ErrNotFound = errors.New("no results found")

	// ErrDownloadIncomplete means the fetch ran but left no usable blob.
	ErrDownloadIncomplete = errors.New("download failed - no file found")
)

// StoreWriteError wraps a local I/O failure while storing a blob or sidecar.
type StoreWriteError struct {
	Path string
	Err  error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write %s: %v", e.Path, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}
