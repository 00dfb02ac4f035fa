package player

import (
	"math/rand/v2"

	"AirgapFM/model"
)

// Advance statuses.
const (
	AdvanceSuccess  = "success"
	AdvanceFinished = "finished"
)

// AdvanceResult is what moving a playlist session forward produced.
type AdvanceResult struct {
	Status       string               `json:"status"`
	Song         *model.PlaylistEntry `json:"song,omitempty"`
	Position     int                  `json:"position,omitempty"` // 1-based
	Total        int                  `json:"total,omitempty"`
	PlaylistName string               `json:"playlistName,omitempty"`
}

// advance serves the next song of ps and moves its cursor.
//
// Loop single steps back one before serving, so it replays the song that was
// just served. An exhausted cursor restarts under loop all and finishes otherwise.
func advance(ps *model.PlaylistSession) AdvanceResult {
	songs := ps.Songs
	if len(songs) == 0 {
		return AdvanceResult{Status: AdvanceFinished, PlaylistName: ps.PlaylistName}
	}

	idx := ps.CurrentIndex
	switch {
	case ps.LoopMode == model.LoopSingle:
		if idx > 0 {
			idx--
		}
		if idx >= len(songs) {
			idx = 0
		}
	case idx >= len(songs):
		if ps.LoopMode != model.LoopAll {
			return AdvanceResult{Status: AdvanceFinished, PlaylistName: ps.PlaylistName}
		}
		idx = 0
	}

	song := songs[idx]
	ps.CurrentIndex = idx + 1
	return AdvanceResult{
		Status:       AdvanceSuccess,
		Song:         &song,
		Position:     idx + 1,
		Total:        ps.TotalSongs,
		PlaylistName: ps.PlaylistName,
	}
}

// shuffleRemaining 打乱尚未播放的歌曲
func shuffleRemaining(ps *model.PlaylistSession) {
	start := ps.CurrentIndex
	if start < 0 {
		start = 0
	}
	if start > len(ps.Songs) {
		start = len(ps.Songs)
	}
	songs := make([]model.PlaylistEntry, len(ps.Songs))
	copy(songs, ps.Songs)

	// 对 songs[start:] 做 Fisher-Yates 洗牌
	for i := len(songs) - 1; i > start; i-- {
		j := start + rand.IntN(i-start+1)
		songs[i], songs[j] = songs[j], songs[i]
	}
	ps.Songs = songs
	ps.Shuffle = true
}

// unshuffle restores the original order and moves the cursor to just after
// the last served song's original position.
func unshuffle(ps *model.PlaylistSession) {
	last := ps.CurrentIndex - 1
	if last >= 0 && last < len(ps.Songs) {
		current := ps.Songs[last].AudioFile
		ps.CurrentIndex = 0
		for i, song := range ps.OriginalSongs {
			if song.AudioFile == current {
				ps.CurrentIndex = i + 1
				break
			}
		}
	}
	songs := make([]model.PlaylistEntry, len(ps.OriginalSongs))
	copy(songs, ps.OriginalSongs)
	ps.Songs = songs
	ps.Shuffle = false
}
