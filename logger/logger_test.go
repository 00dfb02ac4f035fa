package logger

import (
	"errors"
	"testing"

	"github.com/disgoorg/snowflake/v2"
)

func TestParseLevel(t *testing.T) {
	var tests = []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{" WARN ", WarnLevel},
		{"error", ErrorLevel},
		{"info", InfoLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}
	for _, test := range tests {
		if got := ParseLevel(test.in); got != test.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestNoopBeforeInit(t *testing.T) {
	Debug("debug")
	Info("info", String("k", "v"))
	Warn("warn", ErrorField(errors.New("boom")))
	Error("error")
	Sync()
}

func TestDomainFields(t *testing.T) {
	if f := Session(snowflake.ID(42)); f.Key != "session" || f.String != "42" {
		t.Errorf("Session field = %s=%q", f.Key, f.String)
	}
	if f := RequestID("abc"); f.Key != "requestId" || f.String != "abc" {
		t.Errorf("RequestID field = %s=%q", f.Key, f.String)
	}
	if f := File("/tmp/a.webm"); f.Key != "file" || f.String != "/tmp/a.webm" {
		t.Errorf("File field = %s=%q", f.Key, f.String)
	}
}
