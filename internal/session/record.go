// Package session persists one immutable record per pipeline invocation and
// answers summary queries over them.
//
// A log is append-only: records are never rewritten or deleted, sequence
// numbers are assigned atomically and are gap-free within a log, and every
// record is hash-chained to its predecessor so tampering is detectable.
package session

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

// Origin tags how the command string was produced.
type Origin string

const (
	OriginDirect     Origin = "direct"     // typed by the user
	OriginTranslated Origin = "translated" // produced by the translation collaborator
)

// Record is one pipeline invocation: the request, its verdict, and the
// execution outcome when the command ran. Execution fields are zero when the
// verdict was blocked or the input was an empty no-op.
type Record struct {
	Seq        uint64    `json:"seq"`
	Time       time.Time `json:"ts"`
	SessionID  string    `json:"session_id"`
	Origin     Origin    `json:"origin"`
	Text       string    `json:"text"`
	Outcome    string    `json:"outcome"` // "approved" or "blocked"
	Reason     string    `json:"reason,omitempty"`
	Rule       string    `json:"rule,omitempty"`
	Stdout     string    `json:"stdout,omitempty"`
	Stderr     string    `json:"stderr,omitempty"`
	ExitCode   *int      `json:"exit_code,omitempty"` // absent when timed out or never run
	TimedOut   bool      `json:"timed_out,omitempty"`
	DurationMs float64   `json:"duration_ms,omitempty"`
	Error      string    `json:"error,omitempty"` // spawn failure message
	PrevHash   string    `json:"prev_hash"`
	Hash       string    `json:"hash"`
}

// Filter narrows a Query. Zero values match everything.
type Filter struct {
	Outcome   string // "approved", "blocked", or empty for both
	Errored   bool   // only records whose execution faulted (spawn failure)
	SessionID string
	Since     time.Time
	Until     time.Time
	Limit     int // 0 = unlimited
}

func (f Filter) matches(r *Record) bool {
	if f.Outcome != "" && r.Outcome != f.Outcome {
		return false
	}
	if f.Errored && r.Error == "" {
		return false
	}
	if f.SessionID != "" && r.SessionID != f.SessionID {
		return false
	}
	if !f.Since.IsZero() && r.Time.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.Time.After(f.Until) {
		return false
	}
	return true
}

// Summary is the aggregate view over a log (or one session within it).
type Summary struct {
	Total    uint64 `json:"total"`
	Approved uint64 `json:"approved"`
	Blocked  uint64 `json:"blocked"`
	TimedOut uint64 `json:"timed_out"`
	Errors   uint64 `json:"errors"`
}

func (s *Summary) add(r *Record) {
	s.Total++
	switch r.Outcome {
	case "approved":
		s.Approved++
	case "blocked":
		s.Blocked++
	}
	if r.TimedOut {
		s.TimedOut++
	}
	if r.Error != "" {
		s.Errors++
	}
}

// Log appends records durably and answers ordered queries over them.
// Append assigns Seq and the hash chain; callers must not set them.
// Query re-reads from storage, so a repeated call restarts the scan.
type Log interface {
	Append(r *Record) error
	Query(f Filter) ([]Record, error)
	Summary(sessionID string) (Summary, error)
	Close() error
}

const genesisInput = "nlterm-genesis"

func genesisHash() string {
	h := sha256.Sum256([]byte(genesisInput))
	return fmt.Sprintf("%x", h)
}

// computeHash hashes the record with the Hash field cleared.
func computeHash(r Record) string {
	r.Hash = ""
	data, _ := json.Marshal(r)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h)
}

// seal assigns sequence, timestamp, and hash chain to a record being appended.
func seal(r *Record, seq uint64, prevHash string) {
	r.Seq = seq
	if r.Time.IsZero() {
		r.Time = time.Now().UTC()
	}
	r.PrevHash = prevHash
	r.Hash = computeHash(*r)
}
