package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONL is the default log backend: one JSON record per line, appended to a
// single file. Opening an existing file resumes the sequence and hash chain
// from its last line.
type JSONL struct {
	mu       sync.Mutex
	path     string
	seq      uint64
	prevHash string
}

var _ Log = (*JSONL)(nil)

// OpenJSONL opens or creates a JSONL log at path.
func OpenJSONL(path string) (*JSONL, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	l := &JSONL{path: path, prevHash: genesisHash()}

	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		lines := splitLines(data)
		if len(lines) > 0 {
			var last Record
			if err := json.Unmarshal(lines[len(lines)-1], &last); err == nil {
				l.seq = last.Seq
				l.prevHash = last.Hash
			}
		}
	}

	return l, nil
}

// Path returns the log file path.
func (l *JSONL) Path() string {
	return l.path
}

// Append seals and durably writes one record. The in-memory chain state
// advances only after a successful write.
func (l *JSONL) Append(r *Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	seal(r, l.seq+1, l.prevHash)

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	l.seq = r.Seq
	l.prevHash = r.Hash
	return nil
}

// Query scans the file front to back and returns records matching f in
// sequence order.
func (l *JSONL) Query(f Filter) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log: %w", err)
	}

	var out []Record
	for _, line := range splitLines(data) {
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			continue
		}
		if !f.matches(&r) {
			continue
		}
		out = append(out, r)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// Summary aggregates counts, optionally scoped to one session.
func (l *JSONL) Summary(sessionID string) (Summary, error) {
	records, err := l.Query(Filter{SessionID: sessionID})
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	for i := range records {
		s.add(&records[i])
	}
	return s, nil
}

// Close is a no-op; every Append opens and closes the file.
func (l *JSONL) Close() error {
	return nil
}

// Verify reads a JSONL log and checks sequence and hash-chain integrity.
// Returns nil for a valid (or absent) log, or an error naming the first
// violation.
func Verify(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read log: %w", err)
	}

	expectedPrev := genesisHash()
	var prevSeq uint64

	for i, line := range splitLines(data) {
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			return fmt.Errorf("line %d: invalid JSON: %w", i+1, err)
		}
		if r.Seq != prevSeq+1 {
			return fmt.Errorf("line %d: sequence gap: expected %d, got %d", i+1, prevSeq+1, r.Seq)
		}
		if r.PrevHash != expectedPrev {
			return fmt.Errorf("line %d: prev_hash mismatch", i+1)
		}
		if computeHash(r) != r.Hash {
			return fmt.Errorf("line %d: hash mismatch", i+1)
		}
		expectedPrev = r.Hash
		prevSeq = r.Seq
	}
	return nil
}

// Tail returns the last n records of a JSONL log.
func Tail(path string, n int) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := splitLines(data)
	if n > len(lines) {
		n = len(lines)
	}
	out := make([]Record, 0, n)
	for _, line := range lines[len(lines)-n:] {
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
