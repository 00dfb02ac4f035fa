package media

import (
	"testing"
	"time"
)

func TestContentDigest(t *testing.T) {
	// md5("hello") = 5d41402abc4b2a76b9719d911017c592
	if got := ContentDigest("hello", ""); got != "5d41402abc4b" {
		t.Errorf("ContentDigest(hello) = %s", got)
	}
	if ContentDigest("hello", "abc") == ContentDigest("hello", "") {
		t.Error("source id must change the digest")
	}
	if ContentDigest("hello", "abc") != ContentDigest("hello", "abc") {
		t.Error("digest must be deterministic")
	}
}

func TestSafeFilename(t *testing.T) {
	now := time.Unix(1700000000, 0)
	got := SafeFilename("hello", "", now)
	if got != "media_1700000000_5d41402abc4b" {
		t.Errorf("SafeFilename = %s", got)
	}
	d, ok := digestOf(got + ".webm")
	if !ok || d != "5d41402abc4b" {
		t.Errorf("digestOf = %s, %v", d, ok)
	}
	if _, ok := digestOf("song.webm"); ok {
		t.Error("non media names have no digest")
	}
}

func TestMetadataPath(t *testing.T) {
	var tests = []struct{ in, want string }{
		{"media_library/media_1_abc.webm", "media_library/media_1_abc.json"},
		{"a/b.opus", "a/b.json"},
	}
	for _, test := range tests {
		if got := MetadataPath(test.in); got != test.want {
			t.Errorf("MetadataPath(%s) = %s, want %s", test.in, got, test.want)
		}
	}
}

func TestIsAllowedExtension(t *testing.T) {
	for _, ext := range []string{".webm", ".m4a", ".mp4", ".opus", ".WEBM"} {
		if !IsAllowedExtension(ext) {
			t.Errorf("%s should be allowed", ext)
		}
	}
	for _, ext := range []string{".json", ".part", ".mp3", ""} {
		if IsAllowedExtension(ext) {
			t.Errorf("%s should not be allowed", ext)
		}
	}
}
