package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/radreport/internal/model"
	"github.com/sells-group/radreport/internal/pipeline"
	"github.com/sells-group/radreport/internal/store"
	storemocks "github.com/sells-group/radreport/internal/store/mocks"
)

type errRunner struct{ err error }

func (e errRunner) Run(context.Context, model.CaseBundle) (*model.PipelineResult, error) {
	return nil, e.err
}

func serveRequest(h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name   string
		health healthFunc
		want   string
	}{
		{"no checker", nil, "unknown"},
		{"calculator up", func(context.Context) bool { return true }, "ok"},
		{"calculator down", func(context.Context) bool { return false }, "unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveRequest(buildRouter(nil, nil, tt.health), http.MethodGet, "/health", nil)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
			body := decodeBody(t, rr)
			assert.Equal(t, "ok", body["status"])
			assert.Equal(t, tt.want, body["calculator"])
		})
	}
}

func TestRouter_Formulas(t *testing.T) {
	rr := serveRequest(buildRouter(nil, nil, nil), http.MethodGet, "/v1/formulas", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ABD-0001")
}

func TestRouter_CreateCase(t *testing.T) {
	body, _ := json.Marshal(model.CaseBundle{
		CaseID: "ACC-001",
		Fields: map[string]string{"modalidade": "TC"},
	})

	rr := serveRequest(buildRouter(&fakeRunner{}, nil, nil), http.MethodPost, "/v1/cases", body)
	assert.Equal(t, http.StatusOK, rr.Code)

	var result model.PipelineResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, "run-ACC-001", result.RunID)
	assert.Equal(t, model.RiskS3, result.Risk.Level)
}

func TestRouter_CreateCase_BadBody(t *testing.T) {
	h := buildRouter(&fakeRunner{}, nil, nil)

	rr := serveRequest(h, http.MethodPost, "/v1/cases", []byte("{"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serveRequest(h, http.MethodPost, "/v1/cases", []byte(`{"fields":{"a":"b"}}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "case_id is required")
}

func TestRouter_CreateCase_StageError(t *testing.T) {
	runErr := &pipeline.StageError{Stage: pipeline.StageCompute, Err: errors.New("calculator down")}
	body, _ := json.Marshal(model.CaseBundle{CaseID: "ACC-002", Dictation: "x"})

	rr := serveRequest(buildRouter(errRunner{err: runErr}, nil, nil), http.MethodPost, "/v1/cases", body)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	resp := decodeBody(t, rr)
	assert.Equal(t, "compute", resp["stage"])
	assert.Equal(t, "ACC-002", resp["case_id"])
}

func TestRouter_CreateCase_NoPipeline(t *testing.T) {
	rr := serveRequest(buildRouter(nil, nil, nil), http.MethodPost, "/v1/cases", []byte(`{}`))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRouter_Runs_NoStore(t *testing.T) {
	h := buildRouter(nil, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, serveRequest(h, http.MethodGet, "/v1/runs", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serveRequest(h, http.MethodGet, "/v1/runs/abc", nil).Code)
}

func TestRouter_ListRuns(t *testing.T) {
	st := storemocks.NewMockStore(t)
	st.On("ListRuns", mock.Anything, store.RunFilter{
		Status:   model.RunStatusComplete,
		RiskTier: model.RiskS1,
		Limit:    5,
	}).Return([]model.Run{{ID: "run-1", CaseID: "ACC-001"}}, nil)

	rr := serveRequest(buildRouter(nil, st, nil), http.MethodGet, "/v1/runs?status=complete&risk_tier=S1&limit=5", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "run-1")
}

func TestRouter_ListRuns_BadLimit(t *testing.T) {
	st := storemocks.NewMockStore(t)
	rr := serveRequest(buildRouter(nil, st, nil), http.MethodGet, "/v1/runs?limit=-3", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_ListRuns_StoreError(t *testing.T) {
	st := storemocks.NewMockStore(t)
	st.On("ListRuns", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	rr := serveRequest(buildRouter(nil, st, nil), http.MethodGet, "/v1/runs", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRouter_GetRun(t *testing.T) {
	st := storemocks.NewMockStore(t)
	st.On("GetRun", mock.Anything, "run-1").Return(&model.Run{ID: "run-1", Status: model.RunStatusComplete}, nil)
	st.On("GetRun", mock.Anything, "missing").Return(nil, eris.Wrap(store.ErrNotFound, "sqlite: get run"))

	h := buildRouter(nil, st, nil)

	rr := serveRequest(h, http.MethodGet, "/v1/runs/run-1", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "run-1", decodeBody(t, rr)["id"])

	rr = serveRequest(h, http.MethodGet, "/v1/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_GetRunHTML(t *testing.T) {
	st := storemocks.NewMockStore(t)
	st.On("GetRun", mock.Anything, "run-1").Return(&model.Run{
		ID:     "run-1",
		Result: &model.PipelineResult{Markdown: "# LAUDO\n\nSem alteracoes."},
	}, nil)
	st.On("GetRun", mock.Anything, "run-2").Return(&model.Run{ID: "run-2", Status: model.RunStatusFailed}, nil)

	h := buildRouter(nil, st, nil)

	rr := serveRequest(h, http.MethodGet, "/v1/runs/run-1/report.html", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "<h1>LAUDO</h1>")

	rr = serveRequest(h, http.MethodGet, "/v1/runs/run-2/report.html", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/v1/cases", nil)
	req.Header.Set("Origin", "https://viewer.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	buildRouter(nil, nil, nil).ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
