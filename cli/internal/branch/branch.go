// Package branch sanitizes and classifies git branch names for use as prompt
// context. Sanitization lowercases, folds separators, drops user prefixes and
// hash fragments, and masks ticket IDs so branch names never leak tracker
// identifiers to the generation backend.
package branch

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// TicketMask replaces every ticket-style token (e.g. PROJ-123).
const TicketMask = "ticket-xxx"

// Info describes the current branch. Type and Summary are empty when absent.
// IsDefault is true for conventional trunk names; such branches carry no
// useful context and callers should omit them from prompts.
type Info struct {
	RawName   string
	Type      string
	Summary   string
	IsDefault bool
}

// Types is the closed set of recognized branch type prefixes.
var Types = []string{
	"feature", "feat", "fix", "hotfix", "bugfix", "bug",
	"docs", "chore", "refactor", "test", "style",
}

var knownTypes = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Types))
	for _, t := range Types {
		m[t] = struct{}{}
	}
	return m
}()

var defaultBranches = map[string]struct{}{
	"main": {}, "master": {}, "develop": {}, "development": {},
}

var (
	separatorRun = regexp.MustCompile(`[/_-]+`)
	// ticketShaped marks tokens whose hyphen must survive separator folding so
	// the ticket mask can still see them; the mask itself is kept for idempotence.
	ticketShaped = regexp.MustCompile(`(?i)(?:[a-z]{2,}-\d+|ticket-xxx)`)
	userPrefix   = regexp.MustCompile(`^(?:(?:user|username)/)+`)
	ticketToken  = regexp.MustCompile(`(?i)[A-Z]{2,}-\d+`)
	hexToken     = regexp.MustCompile(`\b[0-9a-f]{8,}\b`)
	slashRun     = regexp.MustCompile(`/+`)
)

// IsDefault reports whether name is a trunk branch (main, master, develop,
// development), case-insensitive.
func IsDefault(name string) bool {
	_, ok := defaultBranches[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Parse classifies raw and reports whether it is a default branch.
func Parse(raw string, maxLength int) Info {
	typ, summary := Classify(raw, maxLength)
	return Info{
		RawName:   raw,
		Type:      typ,
		Summary:   summary,
		IsDefault: IsDefault(raw),
	}
}

// Classify sanitizes name and splits it into a branch type and summary.
// If the first path segment is a known type it becomes the type and the rest
// the summary; otherwise type is empty and the whole sanitized name is the
// summary. An empty sanitized name yields ("", "").
func Classify(name string, maxLength int) (typ, summary string) {
	s := Sanitize(name, maxLength)
	if s == "" {
		return "", ""
	}
	if head, rest, ok := strings.Cut(s, "/"); ok {
		if _, known := knownTypes[head]; known {
			return head, rest
		}
	}
	return "", s
}

// Sanitize runs the sanitization pipeline over name. maxLength <= 0 disables
// truncation. Sanitize is idempotent for its own output.
func Sanitize(name string, maxLength int) string {
	s := name
	for _, step := range pipeline(maxLength) {
		s = step(s)
	}
	return s
}

type step func(string) string

// pipeline returns the sanitization steps in their required order.
func pipeline(maxLength int) []step {
	return []step{
		strings.ToLower,
		normalizeSeparators,
		stripUserPrefix,
		maskTickets,
		removeHashes,
		tidySlashes,
		truncateSegments(maxLength),
	}
}

// normalizeSeparators folds runs of '/', '_' and '-' into a single '/',
// leaving ticket-shaped tokens intact.
func normalizeSeparators(s string) string {
	var b strings.Builder
	last := 0
	for _, m := range tokenSpans(ticketShaped, s) {
		b.WriteString(separatorRun.ReplaceAllString(s[last:m[0]], "/"))
		b.WriteString(s[m[0]:m[1]])
		last = m[1]
	}
	b.WriteString(separatorRun.ReplaceAllString(s[last:], "/"))
	return b.String()
}

func stripUserPrefix(s string) string {
	return userPrefix.ReplaceAllString(s, "")
}

func maskTickets(s string) string {
	var b strings.Builder
	last := 0
	for _, m := range tokenSpans(ticketToken, s) {
		b.WriteString(s[last:m[0]])
		b.WriteString(TicketMask)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// tokenSpans returns the matches of re in s that stand alone: the bytes on
// either side are absent or not an ASCII letter or digit. Unlike \b, '_'
// counts as a separator, the same as '-' and '/'.
func tokenSpans(re *regexp.Regexp, s string) [][]int {
	var spans [][]int
	for _, m := range re.FindAllStringIndex(s, -1) {
		if m[0] > 0 && isAlnum(s[m[0]-1]) || m[1] < len(s) && isAlnum(s[m[1]]) {
			continue
		}
		spans = append(spans, m)
	}
	return spans
}

func isAlnum(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

func removeHashes(s string) string {
	return hexToken.ReplaceAllString(s, "")
}

func tidySlashes(s string) string {
	return strings.Trim(slashRun.ReplaceAllString(s, "/"), "/")
}

// truncateSegments cuts s to maxLength runes and then drops any trailing
// partial segment after the last '/'.
func truncateSegments(maxLength int) step {
	return func(s string) string {
		if maxLength <= 0 || utf8.RuneCountInString(s) <= maxLength {
			return s
		}
		s = string([]rune(s)[:maxLength])
		if i := strings.LastIndex(s, "/"); i >= 0 {
			s = s[:i]
		}
		return s
	}
}
