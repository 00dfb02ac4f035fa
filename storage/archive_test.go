package storage

import "testing"

func TestObjectName(t *testing.T) {
	var tests = []struct{ key, want string }{
		{"roadtrip/Song_1_abcd1234.webm", "playlists/roadtrip/Song_1_abcd1234.webm"},
		{"../../etc/passwd", "playlists/etc/passwd"},
		{"/mix/a.json", "playlists/mix/a.json"},
	}
	for _, test := range tests {
		if got := objectName(test.key); got != test.want {
			t.Errorf("objectName(%q) = %q, want %q", test.key, got, test.want)
		}
	}
}

func TestContentTypeFor(t *testing.T) {
	var tests = []struct{ name, want string }{
		{"a.json", "application/json"},
		{"a.WEBM", "audio/webm"},
		{"a.m4a", "audio/mp4"},
		{"a.opus", "audio/ogg"},
		{"a.bin", "application/octet-stream"},
	}
	for _, test := range tests {
		if got := contentTypeFor(test.name); got != test.want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", test.name, got, test.want)
		}
	}
}

func TestFormatSize(t *testing.T) {
	var tests = []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, test := range tests {
		if got := FormatSize(test.size); got != test.want {
			t.Errorf("FormatSize(%d) = %q, want %q", test.size, got, test.want)
		}
	}
}
