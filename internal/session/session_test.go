package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns a fresh instance of every Log implementation, so the
// contract tests run against both.
func backends(t *testing.T) map[string]Log {
	t.Helper()
	dir := t.TempDir()

	jl, err := OpenJSONL(filepath.Join(dir, "session.jsonl"))
	require.NoError(t, err)

	sl, err := OpenSQLite(filepath.Join(dir, "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sl.Close() })

	return map[string]Log{"jsonl": jl, "sqlite": sl}
}

func intp(v int) *int { return &v }

func sampleRecords() []Record {
	return []Record{
		{SessionID: "s1", Origin: OriginDirect, Text: "ls -la", Outcome: "approved", Stdout: "total 0\n", ExitCode: intp(0), DurationMs: 12.5},
		{SessionID: "s1", Origin: OriginTranslated, Text: "rm -rf /", Outcome: "blocked", Reason: "destructive-path", Rule: "rm-recursive-root"},
		{SessionID: "s1", Origin: OriginDirect, Text: "sleep 40", Outcome: "approved", TimedOut: true, DurationMs: 30000},
		{SessionID: "s2", Origin: OriginDirect, Text: "echo hi", Outcome: "approved", Error: "shell could not be started"},
	}
}

func TestAppendAssignsSequence(t *testing.T) {
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i, r := range sampleRecords() {
				rec := r
				require.NoError(t, l.Append(&rec))
				assert.Equal(t, uint64(i+1), rec.Seq)
				assert.NotEmpty(t, rec.Hash)
				assert.NotEmpty(t, rec.PrevHash)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			want := sampleRecords()
			for i := range want {
				require.NoError(t, l.Append(&want[i]))
			}

			got, err := l.Query(Filter{})
			require.NoError(t, err)
			require.Len(t, got, len(want))

			for i := range want {
				assert.Equal(t, want[i].Seq, got[i].Seq)
				assert.Equal(t, want[i].Text, got[i].Text)
				assert.Equal(t, want[i].Origin, got[i].Origin)
				assert.Equal(t, want[i].Outcome, got[i].Outcome)
				assert.Equal(t, want[i].Reason, got[i].Reason)
				assert.Equal(t, want[i].Rule, got[i].Rule)
				assert.Equal(t, want[i].Stdout, got[i].Stdout)
				assert.Equal(t, want[i].Stderr, got[i].Stderr)
				assert.Equal(t, want[i].ExitCode, got[i].ExitCode)
				assert.Equal(t, want[i].TimedOut, got[i].TimedOut)
				assert.Equal(t, want[i].Error, got[i].Error)
				assert.Equal(t, want[i].Hash, got[i].Hash)
				assert.WithinDuration(t, want[i].Time, got[i].Time, time.Millisecond)
			}
		})
	}
}

func TestQueryFilters(t *testing.T) {
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			recs := sampleRecords()
			for i := range recs {
				require.NoError(t, l.Append(&recs[i]))
			}

			blocked, err := l.Query(Filter{Outcome: "blocked"})
			require.NoError(t, err)
			require.Len(t, blocked, 1)
			assert.Equal(t, "rm -rf /", blocked[0].Text)

			approved, err := l.Query(Filter{Outcome: "approved"})
			require.NoError(t, err)
			assert.Len(t, approved, 3)

			errored, err := l.Query(Filter{Errored: true})
			require.NoError(t, err)
			require.Len(t, errored, 1)
			assert.Equal(t, "echo hi", errored[0].Text)

			s1, err := l.Query(Filter{SessionID: "s1"})
			require.NoError(t, err)
			assert.Len(t, s1, 3)

			limited, err := l.Query(Filter{Limit: 2})
			require.NoError(t, err)
			require.Len(t, limited, 2)
			assert.Equal(t, uint64(1), limited[0].Seq)
			assert.Equal(t, uint64(2), limited[1].Seq)
		})
	}
}

func TestQueryTimeRange(t *testing.T) {
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
			for i := 0; i < 3; i++ {
				r := Record{SessionID: "s", Origin: OriginDirect, Text: "echo", Outcome: "approved",
					Time: base.Add(time.Duration(i) * time.Hour)}
				require.NoError(t, l.Append(&r))
			}

			got, err := l.Query(Filter{Since: base.Add(30 * time.Minute), Until: base.Add(90 * time.Minute)})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, uint64(2), got[0].Seq)
		})
	}
}

func TestSummary(t *testing.T) {
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			recs := sampleRecords()
			for i := range recs {
				require.NoError(t, l.Append(&recs[i]))
			}

			all, err := l.Summary("")
			require.NoError(t, err)
			assert.Equal(t, uint64(4), all.Total)
			assert.Equal(t, uint64(3), all.Approved)
			assert.Equal(t, uint64(1), all.Blocked)
			assert.Equal(t, uint64(1), all.TimedOut)
			assert.Equal(t, uint64(1), all.Errors)
			assert.Equal(t, all.Total, all.Approved+all.Blocked)

			s2, err := l.Summary("s2")
			require.NoError(t, err)
			assert.Equal(t, uint64(1), s2.Total)
			assert.Equal(t, uint64(1), s2.Errors)
		})
	}
}

func TestJSONLResumeAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")

	l, err := OpenJSONL(path)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		r := Record{SessionID: "s", Origin: OriginDirect, Text: "echo", Outcome: "approved"}
		require.NoError(t, l.Append(&r))
	}

	l2, err := OpenJSONL(path)
	require.NoError(t, err)
	r := Record{SessionID: "s2", Origin: OriginDirect, Text: "pwd", Outcome: "approved"}
	require.NoError(t, l2.Append(&r))
	assert.Equal(t, uint64(3), r.Seq)

	require.NoError(t, Verify(path))
}

func TestSQLiteResumeAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	l, err := OpenSQLite(path)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		r := Record{SessionID: "s", Origin: OriginDirect, Text: "echo", Outcome: "approved"}
		require.NoError(t, l.Append(&r))
	}
	require.NoError(t, l.Close())

	l2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer l2.Close()
	r := Record{SessionID: "s2", Origin: OriginDirect, Text: "pwd", Outcome: "approved"}
	require.NoError(t, l2.Append(&r))
	assert.Equal(t, uint64(3), r.Seq)
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	l, err := OpenJSONL(path)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		r := Record{SessionID: "s", Origin: OriginDirect, Text: "echo", Outcome: "approved"}
		require.NoError(t, l.Append(&r))
	}
	require.NoError(t, Verify(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := strings.Replace(string(data), `"echo"`, `"sudo reboot"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0o600))

	assert.Error(t, Verify(path))
}

func TestTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	l, err := OpenJSONL(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		r := Record{SessionID: "s", Origin: OriginDirect, Text: "echo", Outcome: "approved"}
		require.NoError(t, l.Append(&r))
	}

	tail, err := Tail(path, 2)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, uint64(4), tail[0].Seq)
	assert.Equal(t, uint64(5), tail[1].Seq)
}
