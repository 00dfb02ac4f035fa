package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"AirgapFM/model"

	"github.com/disgoorg/snowflake/v2"
	"github.com/go-redis/redis/v8"
)

const (
	sessionPlaybackKey = "airgapfm:session:%s:playback" // Hash: playback snapshot
	sessionIndexKey    = "airgapfm:sessions"            // Set: session ids with a snapshot
	sessionTTL         = 24 * time.Hour
)

var errNoClient = errors.New("Redis client not initialized")

// SessionCache 将播放会话状态同步到 Redis
// 供其他进程读取
type SessionCache struct {
	client *redis.Client
}

// NewSessionCache 创建会话缓存，使用全局 RedisClient
func NewSessionCache() *SessionCache {
	return &SessionCache{client: RedisClient}
}

func sessionKey(id snowflake.ID) string {
	return fmt.Sprintf(sessionPlaybackKey, id.String())
}

// SaveSnapshot 覆盖保存会话快照
func (c *SessionCache) SaveSnapshot(ctx context.Context, id snowflake.ID, snap *model.PlaybackSnapshot) error {
	if c.client == nil {
		return errNoClient
	}

	key := sessionKey(id)
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]interface{}{
		"state":         string(snap.State),
		"current_title": snap.CurrentTitle,
		"current_file":  snap.CurrentFile,
		"queue_length":  snap.QueueLength,
		"playlist_name": snap.PlaylistName,
		"current_index": snap.CurrentIndex,
		"total_songs":   snap.TotalSongs,
		"shuffle":       snap.Shuffle,
		"loop_mode":     string(snap.LoopMode),
		"updated_at":    snap.UpdatedAt,
	})
	pipe.Expire(ctx, key, sessionTTL)
	pipe.SAdd(ctx, sessionIndexKey, id.String())
	_, err := pipe.Exec(ctx)
	return err
}

// DeleteSnapshot 删除会话快照
func (c *SessionCache) DeleteSnapshot(ctx context.Context, id snowflake.ID) error {
	if c.client == nil {
		return errNoClient
	}
	pipe := c.client.Pipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, sessionIndexKey, id.String())
	_, err := pipe.Exec(ctx)
	return err
}

// GetSnapshot 获取会话快照，不存在时返回 nil, nil
func (c *SessionCache) GetSnapshot(ctx context.Context, id snowflake.ID) (*model.PlaybackSnapshot, error) {
	if c.client == nil {
		return nil, errNoClient
	}
	result, err := c.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}
	snap := parseSnapshot(result)
	snap.SessionID = id.String()
	return snap, nil
}

// Sessions 列出保存过快照的会话 id
// 快照已过期的 id 会顺带从索引中移除
func (c *SessionCache) Sessions(ctx context.Context) ([]snowflake.ID, error) {
	if c.client == nil {
		return nil, errNoClient
	}
	members, err := c.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(members))
	for _, m := range members {
		id, err := snowflake.Parse(m)
		if err != nil {
			c.client.SRem(ctx, sessionIndexKey, m)
			continue
		}
		n, err := c.client.Exists(ctx, sessionKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			c.client.SRem(ctx, sessionIndexKey, m)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseSnapshot(result map[string]string) *model.PlaybackSnapshot {
	snap := &model.PlaybackSnapshot{
		State:        model.PlaybackState(result["state"]),
		CurrentTitle: result["current_title"],
		CurrentFile:  result["current_file"],
		PlaylistName: result["playlist_name"],
		LoopMode:     model.LoopMode(result["loop_mode"]),
	}
	if v, ok := result["queue_length"]; ok {
		snap.QueueLength, _ = strconv.Atoi(v)
	}
	if v, ok := result["current_index"]; ok {
		snap.CurrentIndex, _ = strconv.Atoi(v)
	}
	if v, ok := result["total_songs"]; ok {
		snap.TotalSongs, _ = strconv.Atoi(v)
	}
	if v, ok := result["shuffle"]; ok {
		snap.Shuffle = v == "1" || v == "true"
	}
	if v, ok := result["updated_at"]; ok {
		snap.UpdatedAt, _ = strconv.ParseInt(v, 10, 64)
	}
	if snap.State == "" {
		snap.State = model.StateIdle
	}
	return snap
}
