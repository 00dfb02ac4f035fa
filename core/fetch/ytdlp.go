package fetch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"AirgapFM/logger"

	"github.com/lrstanley/go-ytdlp"
)

const (
	searchTemplate = "%(id)s\t%(title)s\t%(duration)s\t%(url)s"
	audioFormat    = "bestaudio[acodec^=opus]/bestaudio[ext=webm]/bestaudio[ext=m4a]/bestaudio/best"
)

// YtdlpFetcher shells out to yt-dlp.
type YtdlpFetcher struct {
	proxy string
}

// NewYtdlpFetcher returns a fetcher; proxy may be empty.
func NewYtdlpFetcher(proxy string) *YtdlpFetcher {
	return &YtdlpFetcher{proxy: proxy}
}

func (f *YtdlpFetcher) command() *ytdlp.Command {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings().
		IgnoreConfig()

	if f.proxy != "" {
		cmd.Proxy(f.proxy)
	}
	return cmd
}

// Search runs a flat ytsearch1 lookup.
func (f *YtdlpFetcher) Search(ctx context.Context, query string) (*SourceInfo, error) {
	res, err := f.command().
		FlatPlaylist().
		Print(searchTemplate).
		PlaylistItems("1").
		Run(ctx, "ytsearch1:"+query)
	if err != nil {
		stderr := ""
		if res != nil {
			stderr = strings.TrimSpace(res.Stderr)
		}
		logger.Warn("yt-dlp search failed",
			logger.String("query", query),
			logger.String("stderr", stderr),
			logger.ErrorField(err))
		return nil, fmt.Errorf("yt-dlp search: %w", err)
	}
	return parseSearchOutput(res.Stdout)
}

func (f *YtdlpFetcher) downloadCommand(outputTemplate string) *ytdlp.Command {
	return f.command().
		Format(audioFormat).
		Output(outputTemplate).
		NoPlaylist().
		NoPart().
		NoCheckCertificates().
		SocketTimeout(60).
		Retries("3").
		FragmentRetries("3")
}

// Download fetches the best audio-only format.
func (f *YtdlpFetcher) Download(ctx context.Context, url, outputTemplate string) error {
	res, err := f.downloadCommand(outputTemplate).Run(ctx, url)
	if err != nil {
		stderr := ""
		if res != nil {
			stderr = strings.TrimSpace(res.Stderr)
		}
		logger.Warn("yt-dlp download failed",
			logger.String("url", url),
			logger.String("stderr", stderr),
			logger.ErrorField(err))
		return fmt.Errorf("yt-dlp download: %w", err)
	}
	return nil
}

// parseSearchOutput reads the first well-formed line of searchTemplate output.
func parseSearchOutput(stdout string) (*SourceInfo, error) {
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		parts := strings.Split(strings.TrimRight(line, "\r"), "\t")
		if len(parts) < 4 || parts[0] == "" || parts[0] == "NA" {
			continue
		}
		info := &SourceInfo{
			ID:    parts[0],
			Title: naToEmpty(parts[1]),
			URL:   naToEmpty(parts[3]),
		}
		if d, err := strconv.ParseFloat(parts[2], 64); err == nil {
			info.Duration = int(d)
		}
		if info.URL == "" {
			info.URL = "https://www.youtube.com/watch?v=" + info.ID
		}
		return info, nil
	}
	return nil, ErrNotFound
}

func naToEmpty(s string) string {
	if s == "NA" {
		return ""
	}
	return s
}
