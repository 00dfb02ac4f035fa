package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"AirgapFM/config"
	"AirgapFM/logger"

	"github.com/minio/minio-go/v7"
)

const archivePrefix = "playlists/"

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ObjectInfo 归档对象信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// PlaylistArchive 将歌单文件备份到 MinIO
// 本地歌单目录丢失后可以从中恢复
type PlaylistArchive struct {
	client *minio.Client
	bucket string
}

// NewPlaylistArchive 创建歌单归档，必要时先连接 MinIO
func NewPlaylistArchive(cfg *config.Config) (*PlaylistArchive, error) {
	if minioClient == nil {
		if err := InitMinio(cfg); err != nil {
			return nil, err
		}
	}
	return &PlaylistArchive{client: minioClient, bucket: cfg.MinioBucket}, nil
}

func objectName(key string) string {
	return archivePrefix + strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(key)), "/")
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".webm":
		return "audio/webm"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".opus":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

// Upload 上传本地文件到 key
func (a *PlaylistArchive) Upload(ctx context.Context, key, localPath string) error {
	name := objectName(key)
	info, err := a.client.FPutObject(ctx, a.bucket, name, localPath, minio.PutObjectOptions{
		ContentType: contentTypeFor(localPath),
	})
	if err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}
	logger.Debug("archived playlist file", logger.String("object", name), logger.Int64("size", info.Size))
	return nil
}

// Restore 下载 key 到本地路径
func (a *PlaylistArchive) Restore(ctx context.Context, key, localPath string) error {
	name := objectName(key)
	if err := a.client.FGetObject(ctx, a.bucket, name, localPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("restore %s: %w", key, err)
	}
	logger.Info("restored playlist file from archive", logger.String("object", name))
	return nil
}

// List 列出 prefix 下的归档对象，key 相对于归档根目录
func (a *PlaylistArchive) List(ctx context.Context, prefix string) ([]ObjectInfo, *BucketStats, error) {
	stats := &BucketStats{}
	var objects []ObjectInfo

	objectCh := a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{
		Prefix:    archivePrefix + prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("list archive: %w", object.Err)
		}

		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}

		objects = append(objects, ObjectInfo{
			Key:          strings.TrimPrefix(object.Key, archivePrefix),
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
			ETag:         object.ETag,
		})
	}
	return objects, stats, nil
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
