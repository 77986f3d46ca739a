package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hep-reco/pandora/internal/pandora"
)

func openTestStore(t *testing.T) *RunStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_AppliesMigrationsAndIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ListRuns(10)
	assert.NoError(t, err, "the reconstruction_runs table must exist after migration")

	s2, err := Open(path)
	require.NoError(t, err, "re-opening an up-to-date database must be a no-op, not an error")
	defer s2.Close()
}

func TestStartRunAndGetRun_RoundTrips(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	started := time.Unix(1700000000, 0)

	id, err := s.StartRun("run-label-1", started)
	require.NoError(t, err)
	assert.NotZero(t, id)

	run, err := s.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, "run-label-1", run.Label)
	assert.Equal(t, "running", run.Status)
	assert.True(t, run.StartedAt.Equal(started))
	assert.True(t, run.FinishedAt.IsZero(), "an unfinished run has a zero FinishedAt")
}

func TestGetRun_UnknownIDReturnsError(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	_, err := s.GetRun(999)
	assert.Error(t, err)
}

func TestFinishRun_UpdatesStatusAndCounts(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	id, err := s.StartRun("run-label-1", time.Unix(1700000000, 0))
	require.NoError(t, err)

	finished := time.Unix(1700000100, 0)
	require.NoError(t, s.FinishRun(id, finished, 42, 7, "completed"))

	run, err := s.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, 42, run.EventCount)
	assert.Equal(t, 7, run.PFOCount)
	assert.True(t, run.FinishedAt.Equal(finished))
}

func TestListRuns_OrdersNewestFirstAndHonorsLimit(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := s.StartRun("run", time.Unix(1700000000+int64(i), 0))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := s.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID, "the most recently started run comes first")
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestInsertPFOAndPFOsForEvent_RoundTrips(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	runID, err := s.StartRun("run-label-1", time.Unix(1700000000, 0))
	require.NoError(t, err)

	rec := &PFORecord{
		RunID:        runID,
		EventNumber:  3,
		ParticleID:   22,
		Charge:       0,
		EnergyGeV:    4.5,
		Momentum:     pandora.CartesianVector{X: 1, Y: 2, Z: 3},
		ClusterCount: 1,
		TrackCount:   0,
	}
	require.NoError(t, s.InsertPFO(rec))

	// A PFO in a different event must not be returned.
	other := *rec
	other.EventNumber = 4
	require.NoError(t, s.InsertPFO(&other))

	got, err := s.PFOsForEvent(runID, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ParticleID, got[0].ParticleID)
	assert.Equal(t, rec.Momentum, got[0].Momentum)
	assert.Equal(t, rec.EnergyGeV, got[0].EnergyGeV)
}

func TestPFOsForEvent_NoMatchesReturnsEmpty(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	runID, err := s.StartRun("run-label-1", time.Unix(1700000000, 0))
	require.NoError(t, err)

	got, err := s.PFOsForEvent(runID, 99)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIsSQLiteBusy_MatchesKnownMessages(t *testing.T) {
	t.Parallel()

	assert.True(t, isSQLiteBusy(&sqliteBusyError{"database is locked"}))
	assert.True(t, isSQLiteBusy(&sqliteBusyError{"SQLITE_BUSY: cannot proceed"}))
	assert.False(t, isSQLiteBusy(&sqliteBusyError{"no such table"}))
	assert.False(t, isSQLiteBusy(nil))
}

type sqliteBusyError struct{ msg string }

func (e *sqliteBusyError) Error() string { return e.msg }
