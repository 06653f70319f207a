package storage

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"
)

const (
	FolderDevices   = "donated_devices"
	FolderMedicines = "donated_medicines"
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// BuildObjectKey returns folder/<sanitized base name>_<unix millis>-<suffix>.
func BuildObjectKey(folder, originalName string, now time.Time, suffix int64) string {
	name := originalName
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	name = unsafeKeyChars.ReplaceAllString(name, "_")
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("%s/%s_%d-%d", folder, name, now.UnixMilli(), suffix)
}

// NewObjectKey builds a collision-resistant key for an upload happening now.
func NewObjectKey(folder, originalName string) string {
	return BuildObjectKey(folder, originalName, time.Now(), rand.Int63n(1_000_000_000))
}
