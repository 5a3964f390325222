package store

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labsinal/celltrack/internal/mitosis"
	"github.com/labsinal/celltrack/internal/timeutil"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "celltrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_MigratesToLatest(t *testing.T) {
	db := openTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, db.MigrateUp())
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.MigrateDown())

	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	_, err = db.Exec(`SELECT params_json FROM evaluations`)
	assert.Error(t, err, "params_json should be gone after rolling back")

	require.NoError(t, db.MigrateUp())
}

func TestEvaluationStore_InsertGet(t *testing.T) {
	s := NewEvaluationStore(openTestDB(t))

	res := mitosis.Result{TP: 3, FP: 1, FN: 2, Precision: 0.75, Recall: 0.6, F1: 2 * 0.75 * 0.6 / 1.35}
	e := NewEvaluation(KindEvaluate, "colony-1a", mitosis.Tolerance{Time: 2, Position: 20}, res)
	e.GroundTruth = "gt.csv"
	e.Predicted = "tracks.csv"
	e.ParamsJSON = json.RawMessage(`{"is_mitosis":false}`)
	require.NoError(t, s.Insert(e))
	require.NotEmpty(t, e.EvaluationID)
	require.NotZero(t, e.CreatedAt)

	got, err := s.Get(e.EvaluationID)
	require.NoError(t, err)
	assert.Equal(t, e, got)
	assert.WithinDuration(t, time.Now(), got.Created(), time.Minute)
}

func TestEvaluationStore_GetMissing(t *testing.T) {
	s := NewEvaluationStore(openTestDB(t))
	_, err := s.Get("nope")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestEvaluationStore_ListAndDelete(t *testing.T) {
	s := NewEvaluationStore(openTestDB(t))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano()
	evals := []*Evaluation{
		{Kind: KindBatch, Label: "a", CreatedAt: base + 1},
		{Kind: KindBatch, Label: "b", CreatedAt: base + 2},
		{Kind: KindSweep, Label: "a", CreatedAt: base + 3},
	}
	require.NoError(t, s.InsertAll(evals))

	all, err := s.List(Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, evals[2].EvaluationID, all[0].EvaluationID, "newest first")

	byLabel, err := s.List(Filter{Label: "a"})
	require.NoError(t, err)
	assert.Len(t, byLabel, 2)

	byKind, err := s.List(Filter{Kind: KindBatch, Label: "a"})
	require.NoError(t, err)
	require.Len(t, byKind, 1)
	assert.Equal(t, evals[0].EvaluationID, byKind[0].EvaluationID)

	limited, err := s.List(Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, s.Delete(evals[1].EvaluationID))
	assert.ErrorIs(t, s.Delete(evals[1].EvaluationID), ErrNotFound)

	all, err = s.List(Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestEvaluationStore_DuplicateID(t *testing.T) {
	s := NewEvaluationStore(openTestDB(t))
	e := &Evaluation{EvaluationID: "fixed", Kind: KindEvaluate}
	require.NoError(t, s.Insert(e))
	assert.Error(t, s.Insert(&Evaluation{EvaluationID: "fixed", Kind: KindEvaluate}))
}

// useMockClock swaps the package clock for the duration of the test.
func useMockClock(t *testing.T, start time.Time) *timeutil.MockClock {
	t.Helper()
	mock := timeutil.NewMockClock(start)
	old := clock
	clock = mock
	t.Cleanup(func() { clock = old })
	return mock
}

func TestRetryOnBusy(t *testing.T) {
	oldRetries, oldBackoff := busyRetries, busyBackoff
	busyRetries, busyBackoff = 3, time.Millisecond
	defer func() { busyRetries, busyBackoff = oldRetries, oldBackoff }()
	mock := useMockClock(t, time.Unix(0, 0))

	calls := 0
	err := retryOnBusy(func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, mock.Sleeps(), "backoff doubles")

	calls = 0
	err = retryOnBusy(func() error {
		calls++
		return errors.New("SQLITE_BUSY")
	})
	assert.Error(t, err)
	assert.Equal(t, 4, calls)

	calls = 0
	err = retryOnBusy(func() error {
		calls++
		return errors.New("constraint failed")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "other errors are not retried")
}

func TestEvaluationStore_StampsCreatedAtFromClock(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mock := useMockClock(t, start)
	s := NewEvaluationStore(openTestDB(t))

	first := &Evaluation{Kind: KindEvaluate, Label: "first"}
	require.NoError(t, s.Insert(first))
	mock.Advance(time.Hour)
	second := &Evaluation{Kind: KindEvaluate, Label: "second"}
	require.NoError(t, s.Insert(second))

	assert.True(t, first.Created().Equal(start))
	assert.True(t, second.Created().Equal(start.Add(time.Hour)))

	list, err := s.List(Filter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Label, "newest first")
}
