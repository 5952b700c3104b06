package wal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chrondb/chrondb/internal/idgen"
	"github.com/chrondb/chrondb/internal/lockfile"
)

const lockFileName = ".wal.lock"

// Log is an append-only, one-file-per-entry write-ahead log directory,
// flock-guarded so only one process owns it at a time.
type Log struct {
	dir      string
	lockFile *os.File
	seq      uint64
	mu       sync.Mutex
}

// Open acquires the WAL directory for this process and primes the
// sequence counter from the highest-numbered entry file found. A second
// process opening the same directory gets ErrLockBusy.
func Open(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("wal: create dir: %w", err)
	}

	lf, err := os.OpenFile(filepath.Join(dir, lockFileName), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("wal: open lock file: %w", err)
	}
	if err := lockfile.FlockExclusiveNonBlock(lf); err != nil {
		lf.Close()
		return nil, fmt.Errorf("wal: acquire directory lock: %w", err)
	}

	l := &Log{dir: dir, lockFile: lf}
	maxSeq, err := l.maxSequenceOnDisk()
	if err != nil {
		lf.Close()
		return nil, err
	}
	l.seq = maxSeq
	return l, nil
}

// Close releases the directory lock. It does not delete any entries.
func (l *Log) Close() error {
	return l.lockFile.Close()
}

func (l *Log) maxSequenceOnDisk() (uint64, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return 0, fmt.Errorf("wal: list dir: %w", err)
	}
	var max uint64
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		seqStr, _, found := strings.Cut(de.Name(), "-")
		if !found {
			continue
		}
		if seq, err := strconv.ParseUint(seqStr, 10, 64); err == nil && seq > max {
			max = seq
		}
	}
	return max, nil
}

func (l *Log) fileName(seq uint64, id string) string {
	return fmt.Sprintf("%020d-%s.json", seq, id)
}

func (l *Log) pathFor(e Entry) string {
	return filepath.Join(l.dir, l.fileName(e.Seq, e.ID))
}

// Append durably writes a new PENDING entry and returns it. The entry
// exists on disk before this call returns; callers rely on that ordering
// to mutate the object store only after the log records the intent.
func (l *Log) Append(op Operation, documentID, branch string, content []byte, now time.Time) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := atomic.AddUint64(&l.seq, 1)
	entry := Entry{
		ID:         idgen.WALEntryID(documentID, seq, now),
		Seq:        seq,
		CreatedAt:  now,
		Operation:  op,
		DocumentID: documentID,
		Branch:     branch,
		Content:    content,
		State:      StatePending,
	}
	if err := l.writeAtomic(entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Advance durably transitions entry to newState via a rename-on-close
// atomic rewrite. The entry file's name depends only on sequence and id,
// so the rewrite replaces it in place.
func (l *Log) Advance(entry Entry, newState State) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.State = newState
	if err := l.writeAtomic(entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (l *Log) writeAtomic(entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("wal: encode entry: %w", err)
	}

	target := l.pathFor(entry)
	tmp := target + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("wal: create temp entry file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("wal: write temp entry file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("wal: fsync temp entry file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("wal: close temp entry file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("wal: rename entry file into place: %w", err)
	}
	return nil
}

// List returns every non-truncated entry, ordered by ascending sequence.
func (l *Log) List() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listLocked()
}

func (l *Log) listLocked() ([]Entry, error) {
	dirEntries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("wal: list dir: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(l.dir, de.Name()))
		if err != nil {
			return nil, fmt.Errorf("wal: read entry %s: %w", de.Name(), err)
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("wal: decode entry %s: %w", de.Name(), err)
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })
	return entries, nil
}

// Truncate permanently removes entry's file. Only valid for COMPLETED
// entries; ROLLED_BACK entries are retained for audit until the operator
// removes them.
func (l *Log) Truncate(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.Remove(l.pathFor(entry)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("wal: truncate entry: %w", err)
	}
	return nil
}

// TruncateCompleted removes every COMPLETED entry from disk, as required
// at the end of recovery.
func (l *Log) TruncateCompleted() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.listLocked()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.State != StateCompleted {
			continue
		}
		if err := os.Remove(l.pathFor(e)); err != nil && !os.IsNotExist(err) {
			return n, fmt.Errorf("wal: truncate completed entry %s: %w", e.ID, err)
		}
		n++
	}
	return n, nil
}
