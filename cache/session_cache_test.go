package cache

import (
	"context"
	"testing"

	"AirgapFM/model"

	"github.com/disgoorg/snowflake/v2"
)

func TestParseSnapshot(t *testing.T) {
	snap := parseSnapshot(map[string]string{
		"state":         "playing_playlist",
		"current_title": "Road Song",
		"queue_length":  "2",
		"playlist_name": "roadtrip",
		"current_index": "3",
		"total_songs":   "7",
		"shuffle":       "1",
		"loop_mode":     "all",
		"updated_at":    "1700000000000",
	})
	if snap.State != model.StatePlayingPlaylist || snap.CurrentTitle != "Road Song" {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.QueueLength != 2 || snap.CurrentIndex != 3 || snap.TotalSongs != 7 {
		t.Errorf("counters = %+v", snap)
	}
	if !snap.Shuffle || snap.LoopMode != model.LoopAll || snap.UpdatedAt != 1700000000000 {
		t.Errorf("flags = %+v", snap)
	}
}

func TestParseSnapshotDefaults(t *testing.T) {
	snap := parseSnapshot(map[string]string{"shuffle": "0", "queue_length": "x"})
	if snap.State != model.StateIdle || snap.Shuffle || snap.QueueLength != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestSessionKey(t *testing.T) {
	if got := sessionKey(snowflake.ID(123)); got != "airgapfm:session:123:playback" {
		t.Errorf("sessionKey = %s", got)
	}
}

func TestSessionCacheWithoutClient(t *testing.T) {
	c := &SessionCache{}
	ctx := context.Background()
	if err := c.SaveSnapshot(ctx, 1, &model.PlaybackSnapshot{}); err == nil {
		t.Error("SaveSnapshot without client should fail")
	}
	if err := c.DeleteSnapshot(ctx, 1); err == nil {
		t.Error("DeleteSnapshot without client should fail")
	}
	if _, err := c.GetSnapshot(ctx, 1); err == nil {
		t.Error("GetSnapshot without client should fail")
	}
	if _, err := c.Sessions(ctx); err == nil {
		t.Error("Sessions without client should fail")
	}
}
