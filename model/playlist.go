package model

// PlaylistEntry 歌单条目，指向歌单自有的永久副本
type PlaylistEntry struct {
	Title        string  `json:"title"`
	AudioFile    string  `json:"audio_file"`
	MetadataFile string  `json:"metadata_file"`
	Duration     Seconds `json:"duration"`
	Added        float64 `json:"added"`
}

// Playlist is the on-disk index <playlists>/<name>.json.
type Playlist struct {
	Name          string          `json:"name"`
	Created       float64         `json:"created"`
	Files         []PlaylistEntry `json:"files"`
	TotalDuration Seconds         `json:"total_duration"`
}

// PlaylistSummary 歌单列表项
type PlaylistSummary struct {
	Name     string `json:"name"`
	Files    int    `json:"files"`
	Duration int    `json:"duration"`
}
