package model

// Result statuses.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Cleanup signal types.
const (
	CleanupSingle = "cleanup"
	CleanupAll    = "cleanup_all"
)

// Reasons attached to cleanup_all signals.
const (
	ReasonStartup        = "startup_cleanup"
	ReasonShutdown       = "shutdown_cleanup"
	ReasonSystemShutdown = "system_shutdown"
)

// PlaybackRequest is written by the front-end as request_<id>.json.
type PlaybackRequest struct {
	Query     string  `json:"query"`
	RequestID string  `json:"request_id"`
	Timestamp float64 `json:"timestamp"`
}

// PlaybackResult is written by the worker as result_<id>.json.
type PlaybackResult struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id,omitempty"`
	FilePath  string `json:"file_path,omitempty"`
	Title     string `json:"title,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	Cached    bool   `json:"cached"`
	Message   string `json:"message,omitempty"`
}

// OK reports whether the worker resolved the request.
func (r *PlaybackResult) OK() bool {
	return r.Status == ResultSuccess
}

// CleanupRequest is written as cleanup_<id>.json or cleanup_all_<id>.json.
type CleanupRequest struct {
	Type      string  `json:"type"`
	FilePath  string  `json:"file_path,omitempty"`
	Reason    string  `json:"reason,omitempty"`
	CleanupID string  `json:"cleanup_id"`
	Timestamp float64 `json:"timestamp"`
}

// QueueStats counts the files waiting in the queue directory.
type QueueStats struct {
	Requests int `json:"requests"`
	Cleanups int `json:"cleanups"`
	Results  int `json:"results"`
}
