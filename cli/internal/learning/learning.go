// Package learning keeps (generated, final) commit message pairs so later
// prompts can show the model how the user edits its output.
//
// Records live in learning.jsonl, one JSON object per line, next to the
// config file. A record starts pending when a message is generated and is
// completed by RecordFinal with the message that was actually committed.
// Only the newest MaxRecords records are kept. Writes that replace or drop
// records rewrite the file atomically (temp file, Sync, rename) under an
// advisory lock.
package learning

import (
	"bufio"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"gitmsg/cli/internal/erruser"
)

// ErrLocked indicates another gitmsg process is writing the store.
var ErrLocked = errors.New("learning store is locked")

const (
	storeFilename = "learning.jsonl"
	lockFilename  = "learning.lock"

	// MaxRecords bounds the store; older records are dropped first.
	MaxRecords = 1000

	maxLineSize = 1024 * 1024
)

// Record is one line of learning.jsonl.
type Record struct {
	ID         string     `json:"id"`
	Repo       string     `json:"repo"`
	DiffHash   string     `json:"diff_hash"`
	Format     string     `json:"format"`
	Model      string     `json:"model,omitempty"`
	Generated  string     `json:"generated"`
	Final      string     `json:"final,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Pending reports whether the record still waits for its final message.
func (r Record) Pending() bool { return r.FinishedAt == nil }

// Pair is one learning example: what was generated and what was committed.
type Pair struct {
	Generated string
	Edited    string
}

// Store reads and writes learning.jsonl under one directory.
type Store struct {
	dir        string
	maxRecords int
	log        *slog.Logger
	now        func() time.Time
}

// Open returns a store rooted at dir. Nothing is created until the first write.
func Open(dir string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Store{dir: dir, maxRecords: MaxRecords, log: log, now: time.Now}
}

// Path returns the store file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, storeFilename)
}

// RecordGenerated stores a pending record for a freshly generated message.
// A pending record for the same repository and diff hash is replaced, so
// regenerating for one diff keeps only the latest output. ID and CreatedAt
// are filled in and the stored record is returned.
func (s *Store) RecordGenerated(rec Record) (Record, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now().UTC()
	rec.Final, rec.FinishedAt = "", nil

	release, err := acquireLock(s.dir)
	if err != nil {
		return Record{}, lockError(err)
	}
	defer release()

	records, err := s.read()
	if err != nil {
		return Record{}, err
	}
	kept := records[:0]
	for _, r := range records {
		if r.Pending() && r.Repo == rec.Repo && r.DiffHash == rec.DiffHash {
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) == len(records) && len(records) < s.maxRecords {
		return rec, s.append(rec)
	}
	return rec, s.rewrite(append(kept, rec))
}

// RecordFinal completes the newest pending record for repo with message.
// It reports false when there is no pending record for the repository.
func (s *Store) RecordFinal(repo, message string) (Record, bool, error) {
	message = strings.TrimSpace(message)
	release, err := acquireLock(s.dir)
	if err != nil {
		return Record{}, false, lockError(err)
	}
	defer release()

	records, err := s.read()
	if err != nil {
		return Record{}, false, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		r := &records[i]
		if r.Repo != repo || !r.Pending() {
			continue
		}
		now := s.now().UTC()
		r.Final = message
		r.FinishedAt = &now
		if err := s.rewrite(records); err != nil {
			return Record{}, false, err
		}
		return *r, true, nil
	}
	return Record{}, false, nil
}

// Examples returns up to n pairs for repo whose final message differs from
// the generated one, newest first.
func (s *Store) Examples(repo string, n int) ([]Pair, error) {
	if n <= 0 {
		return nil, nil
	}
	records, err := s.read()
	if err != nil {
		return nil, err
	}
	var out []Pair
	for i := len(records) - 1; i >= 0 && len(out) < n; i-- {
		r := records[i]
		if r.Repo != repo || r.Pending() || r.Final == "" {
			continue
		}
		if strings.TrimSpace(r.Final) == strings.TrimSpace(r.Generated) {
			continue
		}
		out = append(out, Pair{Generated: r.Generated, Edited: r.Final})
	}
	return out, nil
}

// Records returns every stored record, oldest first.
func (s *Store) Records() ([]Record, error) {
	return s.read()
}

// read loads all records. A missing file is empty; malformed lines are
// skipped with a warning.
func (s *Store) read() ([]Record, error) {
	f, err := os.Open(s.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, erruser.New("Could not read learning data.", err)
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			s.log.Warn("skipping malformed learning record", "path", s.Path(), "line", lineNo, "error", err)
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, erruser.New("Could not read learning data.", err)
	}
	return out, nil
}

// append writes one record as a single JSON line.
func (s *Store) append(rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return erruser.New("Could not record learning data.", err)
	}
	f, err := os.OpenFile(s.Path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return erruser.New("Could not record learning data.", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return erruser.New("Could not record learning data.", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return erruser.New("Could not record learning data.", err)
	}
	if err := f.Close(); err != nil {
		return erruser.New("Could not record learning data.", err)
	}
	return nil
}

// rewrite replaces the store with the newest maxRecords of records.
func (s *Store) rewrite(records []Record) error {
	if len(records) > s.maxRecords {
		records = records[len(records)-s.maxRecords:]
	}
	f, err := os.CreateTemp(s.dir, "learning.*.tmp")
	if err != nil {
		return erruser.New("Could not record learning data.", err)
	}
	tmpPath := f.Name()
	defer func() { _ = os.Remove(tmpPath) }()
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			_ = f.Close()
			return erruser.New("Could not record learning data.", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return erruser.New("Could not record learning data.", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return erruser.New("Could not record learning data.", err)
	}
	if err := f.Close(); err != nil {
		return erruser.New("Could not record learning data.", err)
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		return erruser.New("Could not record learning data.", err)
	}
	return nil
}

func lockError(err error) error {
	if errors.Is(err, ErrLocked) {
		return erruser.New("Learning data is being written by another gitmsg process.", err)
	}
	return erruser.New("Could not lock learning data.", err)
}
