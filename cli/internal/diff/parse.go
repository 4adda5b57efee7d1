package diff

import (
	"bufio"
	"strings"
)

// binaryMarker is the prefix git uses when a file is binary.
const binaryMarker = "Binary files "

// FileChange summarizes one file section of a unified diff.
type FileChange struct {
	Path    string // b-side path of the diff --git header
	Added   int
	Removed int
	Binary  bool
}

// ChangedFiles returns the paths named by diff --git headers, in order,
// without duplicates. Empty diff produces nil.
func ChangedFiles(raw string) []string {
	var files []string
	seen := make(map[string]struct{})
	for _, fc := range ParseFiles(raw) {
		if fc.Path == "" {
			continue
		}
		if _, ok := seen[fc.Path]; ok {
			continue
		}
		seen[fc.Path] = struct{}{}
		files = append(files, fc.Path)
	}
	return files
}

// ParseFiles splits the output of `git diff --cached` by file and counts
// added and removed lines per file. Binary file sections are reported with
// Binary set and zero counts.
func ParseFiles(raw string) []FileChange {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []FileChange
	for _, section := range splitByFileSections(raw) {
		if strings.TrimSpace(section) == "" {
			continue
		}
		fc := parseFileSection(section)
		if fc.Path == "" && fc.Added == 0 && fc.Removed == 0 {
			continue
		}
		out = append(out, fc)
	}
	return out
}

// splitByFileSections splits diff output by "diff --git " so each section
// is one file's diff (or one binary notice).
func splitByFileSections(out string) []string {
	const prefix = "diff --git "
	var sections []string
	start := 0
	for {
		i := strings.Index(out[start:], prefix)
		if i < 0 {
			if start < len(out) && strings.TrimSpace(out[start:]) != "" {
				sections = append(sections, out[start:])
			}
			break
		}
		pos := start + i
		if pos > start && strings.TrimSpace(out[start:pos]) != "" {
			sections = append(sections, out[start:pos])
		}
		start = pos
		next := strings.Index(out[start+len(prefix):], prefix)
		if next < 0 {
			sections = append(sections, out[start:])
			break
		}
		sections = append(sections, out[start:start+len(prefix)+next])
		start = start + len(prefix) + next
	}
	return sections
}

func parseFileSection(section string) FileChange {
	var (
		fc           FileChange
		pathA, pathB string
	)
	scanner := bufio.NewScanner(strings.NewReader(section))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "diff --git "):
			pathA, pathB = parseDiffGitLine(line)
		case strings.HasPrefix(line, binaryMarker):
			fc.Binary = true
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			fc.Added++
		case strings.HasPrefix(line, "-"):
			fc.Removed++
		}
	}
	fc.Path = pathB
	if fc.Path == "" {
		fc.Path = pathA
	}
	return fc
}

func parseDiffGitLine(line string) (a, b string) {
	// "diff --git a/path b/path"
	rest := strings.TrimPrefix(line, "diff --git ")
	parts := strings.Fields(rest)
	if len(parts) >= 2 {
		a = trimDiffPath(parts[0])
		b = trimDiffPath(parts[1])
	}
	return a, b
}

func trimDiffPath(s string) string {
	if len(s) >= 2 && (s[0] == 'a' || s[0] == 'b') && s[1] == '/' {
		return s[2:]
	}
	return s
}
