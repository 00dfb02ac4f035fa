// Package queue is the file-drop RPC between the front-end and the worker.
//
// The front-end writes request_<id>.json and polls for result_<id>.json.
// cleanup_<id>.json and cleanup_all_<id>.json carry release signals the other
// way. Every file is written through a temp file and a rename.
package queue

import (
	"errors"
	"path/filepath"
	"strings"
)

const (
	requestPrefix    = "request_"
	resultPrefix     = "result_"
	cleanupPrefix    = "cleanup_"
	cleanupAllPrefix = "cleanup_all_"
	fileSuffix       = ".json"
)

// ErrResultTimeout means no result appeared before the deadline.
var ErrResultTimeout = errors.New("timed out waiting for result")

func requestFile(dir, id string) string {
	return filepath.Join(dir, requestPrefix+id+fileSuffix)
}

func resultFile(dir, id string) string {
	return filepath.Join(dir, resultPrefix+id+fileSuffix)
}

func cleanupFile(dir, id string) string {
	return filepath.Join(dir, cleanupPrefix+id+fileSuffix)
}

func cleanupAllFile(dir, id string) string {
	return filepath.Join(dir, cleanupAllPrefix+id+fileSuffix)
}

// idFromName strips prefix and suffix from a queue file name.
func idFromName(name, prefix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(name, prefix), fileSuffix)
}
