package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/radreport/internal/formula"
	"github.com/sells-group/radreport/internal/model"
	"github.com/sells-group/radreport/internal/monitoring"
	"github.com/sells-group/radreport/internal/pipeline"
	"github.com/sells-group/radreport/internal/report"
	"github.com/sells-group/radreport/internal/store"
)

var servePort int

// maxCaseBytes bounds POST /v1/cases request bodies.
const maxCaseBytes = 1 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for report requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Monitoring.Enabled && env.Store != nil {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(env.Store),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(env.Pipeline, env.Store, env.Compute.Healthy),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// healthFunc reports calculator availability.
type healthFunc func(ctx context.Context) bool

// buildRouter wires the HTTP API. st and health may be nil.
func buildRouter(runner caseRunner, st store.Store, health healthFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &apiHandler{runner: runner, store: st, healthCheck: health}

	r.Get("/health", h.health)
	r.Get("/v1/formulas", h.listFormulas)
	r.Post("/v1/cases", h.createCase)
	r.Route("/v1/runs", func(r chi.Router) {
		r.Get("/", h.listRuns)
		r.Get("/{runID}", h.getRun)
		r.Get("/{runID}/report.html", h.getRunHTML)
	})
	return r
}

type apiHandler struct {
	runner      caseRunner
	store       store.Store
	healthCheck healthFunc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *apiHandler) health(w http.ResponseWriter, r *http.Request) {
	calc := "unknown"
	if h.healthCheck != nil {
		calc = "unavailable"
		if h.healthCheck(r.Context()) {
			calc = "ok"
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"calculator": calc,
	})
}

func (h *apiHandler) listFormulas(w http.ResponseWriter, _ *http.Request) {
	reg := formula.Default()
	writeJSON(w, http.StatusOK, map[string]any{
		"version":  reg.Version(),
		"formulas": reg.Formulas(),
	})
}

func (h *apiHandler) createCase(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not configured")
		return
	}

	bundle, err := decodeCase(http.MaxBytesReader(w, r.Body, maxCaseBytes), "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.runner.Run(r.Context(), bundle)
	if err != nil {
		zap.L().Error("serve: case failed",
			zap.String("case_id", bundle.CaseID),
			zap.Error(err),
		)
		resp := map[string]string{"error": "report generation failed", "case_id": bundle.CaseID}
		var se *pipeline.StageError
		if errors.As(err, &se) {
			resp["stage"] = se.Stage
		}
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *apiHandler) listRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run store not configured")
		return
	}

	q := r.URL.Query()
	filter := store.RunFilter{
		Status:   model.RunStatus(q.Get("status")),
		RiskTier: model.RiskTier(q.Get("risk_tier")),
		CaseID:   q.Get("case_id"),
	}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, key+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	runs, err := h.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("serve: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// lookupRun fetches the run named in the path, writing the error response
// itself when it cannot.
func (h *apiHandler) lookupRun(w http.ResponseWriter, r *http.Request) (*model.Run, bool) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run store not configured")
		return nil, false
	}
	run, err := h.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	if err != nil {
		zap.L().Error("serve: get run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get run failed")
		return nil, false
	}
	return run, true
}

func (h *apiHandler) getRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *apiHandler) getRunHTML(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	if run.Result == nil || run.Result.Markdown == "" {
		writeError(w, http.StatusNotFound, "run has no report")
		return
	}

	html, err := report.ToHTML(run.Result.Markdown)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "render html failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}
