package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"MAX_CACHE_SIZE_MB", "MAX_AGE", "POLL_INTERVAL", "RELEASE_AFTER_PLAYBACK", "RESULT_TIMEOUT", "CLEANUP_INTERVAL"} {
		t.Setenv(key, "")
	}
	cfg := FromEnv()
	if cfg.ResultTimeout != 60*time.Second {
		t.Errorf("ResultTimeout = %v, want 60s", cfg.ResultTimeout)
	}
	if cfg.CleanupInterval != 6*time.Hour {
		t.Errorf("CleanupInterval = %v, want 6h", cfg.CleanupInterval)
	}
	// empty strings are not valid numbers or durations, so defaults apply
	if cfg.MaxCacheSizeMB != 100 {
		t.Errorf("MaxCacheSizeMB = %d, want 100", cfg.MaxCacheSizeMB)
	}
	if cfg.MaxAge != 72*time.Hour {
		t.Errorf("MaxAge = %v, want 72h", cfg.MaxAge)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", cfg.PollInterval)
	}
	if cfg.ReleaseAfterPlayback {
		t.Error("ReleaseAfterPlayback should default to false")
	}
}

func TestGetEnvDuration(t *testing.T) {
	var tests = []struct {
		value string
		want  time.Duration
	}{
		{"90s", 90 * time.Second},
		{"6h", 6 * time.Hour},
		{"45", 45 * time.Second},
		{"soon", time.Minute},
	}
	for _, test := range tests {
		t.Setenv("AIRGAPFM_TEST_DURATION", test.value)
		got := getEnvDuration("AIRGAPFM_TEST_DURATION", time.Minute)
		if got != test.want {
			t.Errorf("getEnvDuration(%q) = %v, want %v", test.value, got, test.want)
		}
	}
}

func TestMaxCacheSizeBytes(t *testing.T) {
	cfg := &Config{MaxCacheSizeMB: 100}
	if got := cfg.MaxCacheSizeBytes(); got != 100*1024*1024 {
		t.Errorf("MaxCacheSizeBytes = %d", got)
	}
}
