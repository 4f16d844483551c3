package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/radreport/internal/model"
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

func sampleResult(tier model.RiskTier, passed bool) *model.PipelineResult {
	return &model.PipelineResult{
		RunID:    "ignored",
		Report:   model.ReportJSON{CaseID: "case-1", Modality: model.ModalityCT},
		Markdown: "**TC DE ABDOME**",
		QA:       model.QAResult{Passed: passed},
		Risk:     model.RiskAssessment{Level: tier, Reasons: []string{"passed_all_gates"}},
		Heal:     model.HealSummary{Passed: passed},
	}
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "case-1")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "case-1", got.CaseID)
	assert.Equal(t, model.RunStatusQueued, got.Status)
	assert.Nil(t, got.Result)
	assert.False(t, got.QAPassed)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetRun(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_UpdateRunStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "case-1")
	require.NoError(t, err)
	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusGenerating))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusGenerating, got.Status)

	err = st.UpdateRunStatus(ctx, "missing", model.RunStatusComputing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSQLite_CompleteRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "case-1")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, run.ID, sampleResult(model.RiskS2, true)))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, model.RiskS2, got.RiskTier)
	assert.True(t, got.QAPassed)
	require.NotNil(t, got.Result)
	assert.Equal(t, "**TC DE ABDOME**", got.Result.Markdown)
	assert.Equal(t, model.ModalityCT, got.Result.Report.Modality)
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "case-1")
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID, "pipeline: findings: timeout"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "pipeline: findings: timeout", got.Error)
}

func TestSQLite_ListRuns_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, "case-a")
	require.NoError(t, err)
	b, err := st.CreateRun(ctx, "case-b")
	require.NoError(t, err)
	c, err := st.CreateRun(ctx, "case-c")
	require.NoError(t, err)

	require.NoError(t, st.CompleteRun(ctx, a.ID, sampleResult(model.RiskS1, false)))
	require.NoError(t, st.CompleteRun(ctx, b.ID, sampleResult(model.RiskS3, true)))
	require.NoError(t, st.FailRun(ctx, c.ID, "boom"))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	complete, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	assert.Len(t, complete, 2)

	s1, err := st.ListRuns(ctx, RunFilter{RiskTier: model.RiskS1})
	require.NoError(t, err)
	require.Len(t, s1, 1)
	assert.Equal(t, "case-a", s1[0].CaseID)

	byCase, err := st.ListRuns(ctx, RunFilter{CaseID: "case-c"})
	require.NoError(t, err)
	require.Len(t, byCase, 1)
	assert.Equal(t, model.RunStatusFailed, byCase[0].Status)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	future, err := st.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, future)
}
