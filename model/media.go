package model

import "time"

// MediaMetadata is the sidecar JSON written next to every stored blob.
// Field names on the wire match the files already present in deployed libraries.
type MediaMetadata struct {
	OriginalQuery string  `json:"original_query"`
	Title         string  `json:"title"`
	Duration      Seconds `json:"duration"`
	SourceID      string  `json:"video_id"`
	FilePath      string  `json:"file_path"`
	ProcessedTime float64 `json:"processed_time"` // unix seconds
}

// MediaAsset is a blob in the media library plus whatever is known about it.
type MediaAsset struct {
	Path         string         `json:"path"`
	MetadataPath string         `json:"metadataPath"`
	Size         int64          `json:"size"`
	ModTime      time.Time      `json:"modTime"`
	Metadata     *MediaMetadata `json:"metadata,omitempty"` // nil when the sidecar is missing or unreadable
	Cached       bool           `json:"cached"`
}

// Title falls back to "Unknown" when no metadata was found.
func (a *MediaAsset) Title() string {
	if a.Metadata == nil || a.Metadata.Title == "" {
		return "Unknown"
	}
	return a.Metadata.Title
}

// Duration in seconds, 0 when unknown.
func (a *MediaAsset) Duration() int {
	if a.Metadata == nil {
		return 0
	}
	return int(a.Metadata.Duration)
}

// UnixSeconds renders t the way processed_time and timestamps are stored.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
