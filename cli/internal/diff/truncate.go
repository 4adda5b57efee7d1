package diff

import "strings"

// TruncationMarker is the single line inserted where content was cut.
const TruncationMarker = "... (diff truncated for brevity)"

func isHeader(line string) bool {
	return strings.HasPrefix(line, "diff --git") ||
		strings.HasPrefix(line, "---") ||
		strings.HasPrefix(line, "+++")
}

// Truncate returns d unchanged when d.SizeBytes <= maxBytes. Otherwise it
// returns a copy whose Raw keeps every header line and as many content lines,
// in order, as fit in the budget left after the headers. Each line costs its
// byte length plus one for the newline. At the first content line that does
// not fit, the marker is emitted and all later content is dropped; later
// headers are still emitted. The result satisfies
// SizeBytes <= maxBytes + len(TruncationMarker) whenever the headers alone fit
// in maxBytes.
func Truncate(d Staged, maxBytes int) Staged {
	if d.SizeBytes <= maxBytes {
		return d
	}
	lines := strings.Split(d.Raw, "\n")

	budget := maxBytes
	for _, line := range lines {
		if isHeader(line) {
			budget -= len(line) + 1
		}
	}

	// Headers plus all content cost SizeBytes+1 > maxBytes+1, so some content
	// line always overflows the budget and the marker is always emitted.
	kept := make([]string, 0, len(lines))
	used := 0
	cut := false
	for _, line := range lines {
		if isHeader(line) {
			kept = append(kept, line)
			continue
		}
		if cut {
			continue
		}
		size := len(line) + 1
		if used+size > budget {
			kept = append(kept, TruncationMarker)
			cut = true
			continue
		}
		kept = append(kept, line)
		used += size
	}

	raw := strings.Join(kept, "\n")
	out := d
	out.Raw = raw
	out.SizeBytes = len(raw)
	out.Truncated = true
	out.Files = append([]string(nil), d.Files...)
	return out
}
