package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/config"
	"github.com/sells-group/recon-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "westpark.pdf", model.ShapeComposite)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "westpark.pdf", got.Source)
	assert.Equal(t, model.ShapeComposite, got.Shape)
	assert.Equal(t, model.RunStatusQueued, got.Status)
	assert.Nil(t, got.Confidence)
	assert.Nil(t, got.Result)
}

func TestSQLite_SaveRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "portfolio.json", model.ShapeCollection)
	require.NoError(t, err)

	conf := 87.5
	run.Status = model.RunStatusComplete
	run.Confidence = &conf
	run.Recommendation = "Good extraction quality - minor review recommended"
	run.Result = []byte(`{"confidence":87.5}`)
	require.NoError(t, st.SaveRun(ctx, run))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Confidence)
	assert.InDelta(t, 87.5, *got.Confidence, 1e-9)
	assert.Equal(t, run.Recommendation, got.Recommendation)
	assert.JSONEq(t, `{"confidence":87.5}`, string(got.Result))
}

func TestSQLite_SaveRun_UpdatesShape(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "portfolio.pdf", "")
	require.NoError(t, err)

	run.Shape = model.ShapeCollection
	run.Status = model.RunStatusComplete
	require.NoError(t, st.SaveRun(ctx, run))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShapeCollection, got.Shape)

	runs, err := st.ListRuns(ctx, RunFilter{Shape: model.ShapeCollection})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestSQLite_SaveRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.SaveRun(context.Background(), &model.Run{ID: "missing", Status: model.RunStatusFailed})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetRun(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_ListRuns_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, "a.pdf", model.ShapeComposite)
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "b.json", model.ShapeCollection)
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "c.pdf", model.ShapeComposite)
	require.NoError(t, err)

	a.Status = model.RunStatusFailed
	a.Error = "verify: model unavailable"
	require.NoError(t, st.SaveRun(ctx, a))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	composite, err := st.ListRuns(ctx, RunFilter{Shape: model.ShapeComposite})
	require.NoError(t, err)
	assert.Len(t, composite, 2)

	failed, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "verify: model unavailable", failed[0].Error)

	bySource, err := st.ListRuns(ctx, RunFilter{Source: "b.json"})
	require.NoError(t, err)
	require.Len(t, bySource, 1)
	assert.Equal(t, model.ShapeCollection, bySource[0].Shape)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestOpen_SQLite(t *testing.T) {
	st, err := Open(context.Background(), config.StoreConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "open.db"),
	})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	assert.IsType(t, &SQLiteStore{}, st)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "postgres"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")

	_, err = Open(context.Background(), config.StoreConfig{Driver: "mongo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
