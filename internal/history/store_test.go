package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avareg/quickscan/pkg/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	m, err := NewManager(db)
	require.NoError(t, err)
	return m
}

func sampleAggregate() *types.AggregateResult {
	return &types.AggregateResult{
		Rows: []types.CheckResult{
			{ImageName: "univ-nf-ava", Tag: "1.2.3", CheckName: "HasLicense", Status: types.StatusPassed},
			{ImageName: "univ-nf-ava", Tag: "1.2.3", CheckName: "HasModifiedFiles",
				Status: types.StatusFailed, ModifiedFiles: "/etc/passwd"},
		},
		DetailedRows: []types.DetailedCheck{
			{ImageName: "univ-nf-ava", Tag: "1.2.3", Name: "HasLicense", ElapsedTime: "10"},
		},
		ImagesScanned: 1,
		AnyFailure:    true,
		TotalElapsed:  90 * time.Second,
	}
}

func TestManager_InsertAndLatest(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	inserted, err := m.InsertRun(ctx, sampleAggregate())
	require.NoError(t, err)
	assert.NotZero(t, inserted.ID)

	got, err := m.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, inserted.ID, got.ID)
	assert.Equal(t, 1, got.ImagesScanned)
	assert.True(t, got.AnyFailure)
	assert.EqualValues(t, 90000, got.TotalElapsedMS)

	require.Len(t, got.Rows, 2)
	assert.Equal(t, "HasLicense", got.Rows[0].CheckName)
	assert.Equal(t, "/etc/passwd", got.Rows[1].ModifiedFiles)
	require.Len(t, got.DetailedRows, 1)
	assert.Equal(t, "10", got.DetailedRows[0].ElapsedTime)
}

func TestManager_LatestPicksNewestRun(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.InsertRun(ctx, sampleAggregate())
	require.NoError(t, err)

	second := sampleAggregate()
	second.ImagesScanned = 7
	_, err = m.InsertRun(ctx, second)
	require.NoError(t, err)

	got, err := m.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, got.ImagesScanned)
}

func TestManager_LatestOnEmptyDB(t *testing.T) {
	m := newTestManager(t)
	_, err := m.LatestRun(context.Background())
	require.Error(t, err)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestNewManager_NilDB(t *testing.T) {
	_, err := NewManager(nil)
	require.Error(t, err)
}
