package session

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	seq         INTEGER PRIMARY KEY,
	ts          TEXT    NOT NULL,
	session_id  TEXT    NOT NULL,
	origin      TEXT    NOT NULL,
	text        TEXT    NOT NULL,
	outcome     TEXT    NOT NULL,
	reason      TEXT    NOT NULL DEFAULT '',
	rule        TEXT    NOT NULL DEFAULT '',
	stdout      TEXT    NOT NULL DEFAULT '',
	stderr      TEXT    NOT NULL DEFAULT '',
	exit_code   INTEGER,
	timed_out   INTEGER NOT NULL DEFAULT 0,
	duration_ms REAL    NOT NULL DEFAULT 0,
	error       TEXT    NOT NULL DEFAULT '',
	prev_hash   TEXT    NOT NULL,
	hash        TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_session ON records(session_id);
`

// SQLite is the alternative log backend for installations that prefer a
// queryable database over a flat file. Records carry the same fields and hash
// chain as the JSONL backend.
type SQLite struct {
	mu       sync.Mutex
	db       *sql.DB
	seq      uint64
	prevHash string
}

var _ Log = (*SQLite)(nil)

// OpenSQLite opens or creates a SQLite-backed log at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure database: %w", err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	l := &SQLite{db: db, prevHash: genesisHash()}

	// Resume the sequence and chain from the last record.
	row := db.QueryRow("SELECT seq, hash FROM records ORDER BY seq DESC LIMIT 1")
	var seq uint64
	var hash string
	switch err := row.Scan(&seq, &hash); err {
	case nil:
		l.seq = seq
		l.prevHash = hash
	case sql.ErrNoRows:
	default:
		db.Close()
		return nil, fmt.Errorf("read chain head: %w", err)
	}

	return l, nil
}

// Append seals and inserts one record.
func (l *SQLite) Append(r *Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	seal(r, l.seq+1, l.prevHash)

	var exitCode any
	if r.ExitCode != nil {
		exitCode = *r.ExitCode
	}
	_, err := l.db.Exec(`
		INSERT INTO records
			(seq, ts, session_id, origin, text, outcome, reason, rule,
			 stdout, stderr, exit_code, timed_out, duration_ms, error,
			 prev_hash, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Seq, r.Time.Format(time.RFC3339Nano), r.SessionID, string(r.Origin),
		r.Text, r.Outcome, r.Reason, r.Rule,
		r.Stdout, r.Stderr, exitCode, boolToInt(r.TimedOut), r.DurationMs, r.Error,
		r.PrevHash, r.Hash)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	l.seq = r.Seq
	l.prevHash = r.Hash
	return nil
}

// Query returns matching records in sequence order.
func (l *SQLite) Query(f Filter) ([]Record, error) {
	query := `SELECT seq, ts, session_id, origin, text, outcome, reason, rule,
		stdout, stderr, exit_code, timed_out, duration_ms, error, prev_hash, hash
		FROM records WHERE 1=1`
	var args []any

	if f.Outcome != "" {
		query += " AND outcome = ?"
		args = append(args, f.Outcome)
	}
	if f.Errored {
		query += " AND error != ''"
	}
	if f.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, f.SessionID)
	}
	if !f.Since.IsZero() {
		query += " AND ts >= ?"
		args = append(args, f.Since.UTC().Format(time.RFC3339Nano))
	}
	if !f.Until.IsZero() {
		query += " AND ts <= ?"
		args = append(args, f.Until.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY seq"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var ts string
		var exitCode sql.NullInt64
		var timedOut int
		if err := rows.Scan(&r.Seq, &ts, &r.SessionID, &r.Origin, &r.Text,
			&r.Outcome, &r.Reason, &r.Rule, &r.Stdout, &r.Stderr,
			&exitCode, &timedOut,
			&r.DurationMs, &r.Error, &r.PrevHash, &r.Hash); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			r.Time = t
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			r.ExitCode = &code
		}
		r.TimedOut = timedOut != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary aggregates counts, optionally scoped to one session.
func (l *SQLite) Summary(sessionID string) (Summary, error) {
	query := `SELECT COUNT(*),
		COALESCE(SUM(outcome = 'approved'), 0),
		COALESCE(SUM(outcome = 'blocked'), 0),
		COALESCE(SUM(timed_out), 0),
		COALESCE(SUM(error != ''), 0)
		FROM records`
	var args []any
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}

	var s Summary
	err := l.db.QueryRow(query, args...).Scan(
		&s.Total, &s.Approved, &s.Blocked, &s.TimedOut, &s.Errors)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize records: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (l *SQLite) Close() error {
	return l.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
