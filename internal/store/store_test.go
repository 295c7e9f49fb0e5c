package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/procharness/internal/harness"
	"github.com/roach88/procharness/internal/testutil"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequenceRunIDs("run")))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport(t *testing.T) *harness.Report {
	t.Helper()
	b := harness.Begin("noop", "an_actual_test", "explodes", "aborts", "never")
	require.NoError(t, b.Record("noop", harness.Pass(), 2*time.Millisecond))
	require.NoError(t, b.Record("an_actual_test", harness.Fail("expected false, got true"), 0))
	require.NoError(t, b.Record("explodes", harness.Terminated("boom"), time.Microsecond))
	require.NoError(t, b.Record("aborts", harness.Aborted("abort()"), 0))
	return b.Finish()
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.WriteRun(context.Background(), RunRecord{ID: "r1", StartedAt: t0, Mode: ModeInProcess}, sampleReport(t))
	require.NoError(t, err)
}

func TestWriteRun_ReadRunRestoresReport(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	want := sampleReport(t)

	stored, err := s.WriteRun(ctx, RunRecord{
		ID:          s.NewRunID(),
		StartedAt:   t0,
		Mode:        ModeSupervised,
		Profile:     "default",
		Fingerprint: "abc123",
	}, want)
	require.NoError(t, err)
	assert.Equal(t, "run-0001", stored.ID)
	assert.Equal(t, 1, stored.ExitStatus)
	assert.Equal(t, 4, stored.Total)
	assert.Equal(t, 5, stored.Planned)

	rec, got, err := s.ReadRun(ctx, "run-0001")
	require.NoError(t, err)
	assert.Equal(t, stored, rec)
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"noop", "an_actual_test", "explodes", "aborts"}, got.Names())
	assert.Equal(t, "aborts", got.AbortedDuring)
}

func TestReadRun_RestoresTruncatedRuns(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *harness.ReportBuilder)
	}{
		{"cancelled", func(b *harness.ReportBuilder) {
			require.NoError(t, b.Record("A", harness.Pass(), 0))
			b.Truncate(harness.ReasonCancelled)
		}},
		{"aborted without outcome", func(b *harness.ReportBuilder) {
			require.NoError(t, b.Record("A", harness.Fail("x"), 0))
			b.Abort("B", "worker exited with status 134")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := createTestStore(t)

			b := harness.Begin("A", "B", "C")
			tt.build(b)
			want := b.Finish()

			stored, err := s.WriteRun(ctx, RunRecord{ID: s.NewRunID(), StartedAt: t0, Mode: ModeSupervised}, want)
			require.NoError(t, err)

			_, got, err := s.ReadRun(ctx, stored.ID)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, 3, got.Planned)
		})
	}
}

func TestWriteRun_PassingRun(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	b := harness.Begin("A")
	require.NoError(t, b.Record("A", harness.Pass(), 0))

	rec, err := s.WriteRun(ctx, RunRecord{ID: "ok", StartedAt: t0, Mode: ModeInProcess}, b.Finish())
	require.NoError(t, err)
	assert.Equal(t, 0, rec.ExitStatus)
	assert.False(t, rec.Aborted)
}

func TestWriteRun_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	rec := RunRecord{ID: "dup", StartedAt: t0, Mode: ModeInProcess}

	_, err := s.WriteRun(ctx, rec, sampleReport(t))
	require.NoError(t, err)

	_, err = s.WriteRun(ctx, rec, sampleReport(t))
	assert.ErrorIs(t, err, ErrDuplicateRun)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestWriteRun_EmptyID(t *testing.T) {
	_, err := createTestStore(t).WriteRun(context.Background(), RunRecord{}, sampleReport(t))
	assert.Error(t, err)
}

func TestReadRun_NotFound(t *testing.T) {
	_, _, err := createTestStore(t).ReadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	r := sampleReport(t)

	for i, id := range []string{"a", "b", "c"} {
		_, err := s.WriteRun(ctx, RunRecord{ID: id, StartedAt: t0.Add(time.Duration(i) * time.Minute), Mode: ModeInProcess}, r)
		require.NoError(t, err)
	}
	// Same start time as "c"; the ID breaks the tie.
	_, err := s.WriteRun(ctx, RunRecord{ID: "d", StartedAt: t0.Add(2 * time.Minute), Mode: ModeInProcess}, r)
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	ids := make([]string, len(runs))
	for i, run := range runs {
		ids[i] = run.ID
	}
	assert.Equal(t, []string{"d", "c", "b", "a"}, ids)

	limited, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListRuns_Empty(t *testing.T) {
	runs, err := createTestStore(t).ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a := g.NewRunID()
	b := g.NewRunID()

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
