// Package diff models a staged change set as it is handed to the prompt
// pipeline: the raw unified diff, the files it touches, line counts, a content
// hash for deduplication and the byte size used for budget checks.
//
// # Truncation
// Truncate cuts an oversized diff down to a byte budget. File header lines
// (diff --git, ---, +++) always survive so the reader still knows which files
// changed. Counts, file list and hash describe the full change and are never
// recomputed from the excerpt.
//
// # Empty diff
// A Staged with empty Raw is valid here; callers that require staged changes
// check for it before building one.
package diff

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Staged is one snapshot of staged changes. Values are never mutated after
// construction; Truncate returns a new value.
type Staged struct {
	Raw          string
	Files        []string // paths relative to the repo root, in diff order
	LinesAdded   int
	LinesRemoved int
	Hash         string // sha256 hex of the untruncated Raw
	SizeBytes    int
	Truncated    bool
}

// NewStaged builds a Staged from raw diff text. When files is nil the file
// list is parsed from the diff --git headers.
func NewStaged(raw string, files []string) Staged {
	if files == nil {
		files = ChangedFiles(raw)
	}
	added, removed := CountLines(raw)
	return Staged{
		Raw:          raw,
		Files:        files,
		LinesAdded:   added,
		LinesRemoved: removed,
		Hash:         Hash(raw),
		SizeBytes:    len(raw),
	}
}

// Hash returns the hex-encoded sha256 of raw.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// CountLines counts added and removed lines. File header lines (+++ and ---)
// are not counted.
func CountLines(raw string) (added, removed int) {
	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}
