// Package audio plays stored files through ffplay and reads their length with ffprobe.
package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// FileDuration asks ffprobe how long inputFile plays.
func FileDuration(ctx context.Context, ffprobePath, inputFile string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		inputFile,
	}

	cmd := exec.CommandContext(ctx, ffprobePath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w: %s", inputFile, err, stderr.String())
	}
	return parseDurationOutput(out.Bytes())
}

func parseDurationOutput(data []byte) (time.Duration, error) {
	var info ffprobeOutput
	if err := json.Unmarshal(data, &info); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}
	if info.Format.Duration == "" {
		return 0, fmt.Errorf("duration not found in ffprobe output")
	}
	secs, err := strconv.ParseFloat(info.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", info.Format.Duration, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
