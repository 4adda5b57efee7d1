package git

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// logFormat is one commit per line: hash|author|ISO-8601 date|subject.
const logFormat = "--format=%H|%an|%aI|%s"

// CommitRecord is one entry of recent history.
type CommitRecord struct {
	Hash    string
	Author  string
	Time    time.Time // zero when git printed an unparseable date
	Message string    // subject line
}

// History returns up to depth commits reachable from HEAD, newest first.
// depth <= 0 and repositories without commits return an empty list.
// Malformed log lines are skipped with a warning. log may be nil.
func History(ctx context.Context, repoRoot string, depth int, log *slog.Logger) ([]CommitRecord, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if depth <= 0 {
		return []CommitRecord{}, nil
	}
	out, err := run(ctx, repoRoot, LongTimeout, "log", "-n", strconv.Itoa(depth), logFormat)
	if err != nil {
		if isUnborn(err) {
			return []CommitRecord{}, nil
		}
		return nil, wrapRunErr("read commit history", err)
	}
	return parseLog(out, log), nil
}

func parseLog(out string, log *slog.Logger) []CommitRecord {
	commits := []CommitRecord{}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		c, ok := parseCommitLine(line, log)
		if !ok {
			log.Warn("skipping malformed commit line", "line", line)
			continue
		}
		commits = append(commits, c)
	}
	return commits
}

// parseCommitLine splits on the first three '|' so subjects may contain '|'.
func parseCommitLine(line string, log *slog.Logger) (CommitRecord, bool) {
	parts := strings.SplitN(line, "|", 4)
	if len(parts) != 4 {
		return CommitRecord{}, false
	}
	c := CommitRecord{Hash: parts[0], Author: parts[1], Message: parts[3]}
	if ts, err := time.Parse(time.RFC3339, parts[2]); err == nil {
		c.Time = ts
	} else {
		log.Warn("invalid commit timestamp", "hash", parts[0], "value", parts[2])
	}
	return c, true
}
