package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	// worker 与前端共享的目录
	MediaDir    string
	QueueDir    string
	PlaylistDir string

	// 缓存清理
	MaxCacheSizeMB  int
	MaxAge          time.Duration
	CleanupInterval time.Duration
	ResultTTL       time.Duration
	MinBlobSize     int64

	// 队列协议
	PollInterval       time.Duration
	ResultTimeout      time.Duration
	ResultPollInterval time.Duration
	FetchRatePerMinute int

	// 下载
	YtdlpProxy string

	// radio 控制台本地播放
	FFplayPath  string
	FFprobePath string

	ReleaseAfterPlayback bool

	LogLevel  string
	LogFormat string // json or console
	LogPath   string

	// 管理接口，为空时不启用
	HTTPAddr string

	// Redis配置（可选，会话同步）
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO配置（可选，歌单归档）
	MinioEnabled   bool
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// MySQL配置（可选，请求历史）
	HistoryEnabled bool
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
}

// MaxCacheSizeBytes 缓存上限（字节）
func (c *Config) MaxCacheSizeBytes() int64 {
	return int64(c.MaxCacheSizeMB) * 1024 * 1024
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s", "6h") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// Load reads a .env file when present and then the environment, falling back to defaults.
// godotenv.Load never overrides variables that are already set.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		MediaDir:    getEnv("MEDIA_DIR", "media_library"),
		QueueDir:    getEnv("QUEUE_DIR", "request_queue"),
		PlaylistDir: getEnv("PLAYLIST_DIR", "playlists"),

		MaxCacheSizeMB:  getEnvInt("MAX_CACHE_SIZE_MB", 100),
		MaxAge:          getEnvDuration("MAX_AGE", 72*time.Hour),
		CleanupInterval: getEnvDuration("CLEANUP_INTERVAL", 6*time.Hour),
		ResultTTL:       getEnvDuration("RESULT_TTL", 10*time.Minute),
		MinBlobSize:     int64(getEnvInt("MIN_BLOB_SIZE", 1024)),

		PollInterval:       getEnvDuration("POLL_INTERVAL", 2*time.Second),
		ResultTimeout:      getEnvDuration("RESULT_TIMEOUT", 60*time.Second),
		ResultPollInterval: getEnvDuration("RESULT_POLL_INTERVAL", time.Second),
		FetchRatePerMinute: getEnvInt("FETCH_RATE_PER_MINUTE", 30),

		YtdlpProxy: getEnv("YTDLP_PROXY", ""),

		FFplayPath:  getEnv("FFPLAY_PATH", "ffplay"),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),

		ReleaseAfterPlayback: getEnvBool("RELEASE_AFTER_PLAYBACK", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogPath:   getEnv("LOG_PATH", ""),

		HTTPAddr: getEnv("HTTP_ADDR", ""),

		RedisEnabled:  getEnvBool("REDIS_ENABLED", false),
		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEnabled:   getEnvBool("MINIO_ENABLED", false),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "airgapfm"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		HistoryEnabled: getEnvBool("HISTORY_ENABLED", false),
		DBHost:         getEnv("DB_HOST", "127.0.0.1"),
		DBPort:         getEnv("DB_PORT", "3306"),
		DBUser:         getEnv("DB_USER", "root"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         getEnv("DB_NAME", "airgapfm"),
	}
}
