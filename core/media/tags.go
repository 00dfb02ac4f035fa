package media

import (
	"os"
	"strings"

	"AirgapFM/logger"

	"github.com/dhowden/tag"
)

// titleFromTags reads the title embedded in the blob, if any.
func titleFromTags(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		logger.Debug("no readable tags", logger.File(path), logger.ErrorField(err))
		return ""
	}
	return strings.TrimSpace(m.Title())
}
