package media

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// AllowedExtensions are the blob formats the library accepts, in lookup order.
var AllowedExtensions = []string{".webm", ".m4a", ".mp4", ".opus"}

const blobPrefix = "media_"

// IsAllowedExtension reports whether ext (with the dot) is a blob format.
func IsAllowedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// ContentDigest is the first 12 hex chars of md5(query) or md5(query + "_" + sourceID).
func ContentDigest(query, sourceID string) string {
	content := query
	if sourceID != "" {
		content = query + "_" + sourceID
	}
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])[:12]
}

// SafeFilename is the stem media_<unixtime>_<digest>. It never contains the
// query itself, so no title or search text ends up on disk.
func SafeFilename(query, sourceID string, now time.Time) string {
	return fmt.Sprintf("%s%d_%s", blobPrefix, now.Unix(), ContentDigest(query, sourceID))
}

// MetadataPath returns the sidecar path for a blob.
func MetadataPath(blobPath string) string {
	return strings.TrimSuffix(blobPath, filepath.Ext(blobPath)) + ".json"
}

// digestOf extracts the digest from media_<ts>_<digest>.<ext>.
func digestOf(name string) (string, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if !strings.HasPrefix(stem, blobPrefix) {
		return "", false
	}
	i := strings.LastIndexByte(stem, '_')
	if i < len(blobPrefix) {
		return "", false
	}
	return stem[i+1:], true
}
