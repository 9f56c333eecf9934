package main

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/capstruct/internal/docio"
	"github.com/sells-group/capstruct/internal/jobs"
	"github.com/sells-group/capstruct/internal/model"
	"github.com/sells-group/capstruct/internal/store"
)

// apiServer holds the handler dependencies for the HTTP API.
type apiServer struct {
	manager   *jobs.Manager
	maxUpload int64
}

// newRouter wires the API routes and middleware.
func newRouter(m *jobs.Manager, maxUpload int64, allowedOrigins []string) http.Handler {
	s := &apiServer{manager: m, maxUpload: maxUpload}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/api/health", s.handleHealth)
	r.Route("/api/jobs", func(r chi.Router) {
		r.Post("/", s.handleSubmit)
		r.Get("/", s.handleList)
		r.Get("/{id}", s.handleGet)
		r.Get("/{id}/result", s.handleResult)
		r.Get("/{id}/download/html", s.handleDownloadHTML)
		r.Get("/{id}/download/json", s.handleDownloadJSON)
		r.Delete("/{id}/files", s.handleCleanup)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large or malformed multipart body")
		return
	}

	sub := jobs.Submission{Ticker: r.FormValue("ticker")}

	if v := r.FormValue("market_cap_mm"); v != "" {
		mc, err := strconv.ParseFloat(v, 64)
		if err != nil || mc <= 0 {
			writeError(w, http.StatusBadRequest, "market_cap_mm must be a positive number")
			return
		}
		sub.MarketCapMM = &mc
	}

	balanceSheet, _, err := r.FormFile("balance_sheet")
	if err != nil {
		writeError(w, http.StatusBadRequest, "balance_sheet file is required")
		return
	}
	defer balanceSheet.Close()
	metadata, _, err := r.FormFile("metadata")
	if err != nil {
		writeError(w, http.StatusBadRequest, "metadata file is required")
		return
	}
	defer metadata.Close()
	debtNote, _, err := r.FormFile("debt_note")
	if err != nil {
		writeError(w, http.StatusBadRequest, "debt_note file is required")
		return
	}
	defer debtNote.Close()
	leaseNote, _, err := r.FormFile("lease_note")
	if err != nil {
		writeError(w, http.StatusBadRequest, "lease_note file is required")
		return
	}
	defer leaseNote.Close()

	sub.BalanceSheet = balanceSheet
	sub.Metadata = metadata
	sub.DebtNote = debtNote
	sub.LeaseNote = leaseNote

	job, err := s.manager.Submit(r.Context(), sub)
	if err != nil {
		if eris.Is(err, jobs.ErrNoMarketCapSource) {
			writeError(w, http.StatusBadRequest, "provide market_cap_mm or ticker")
			return
		}
		zap.L().Error("api: submit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "job submission failed")
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	filter := store.JobFilter{
		Status: model.JobStatus(r.URL.Query().Get("status")),
		Ticker: r.URL.Query().Get("ticker"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}

	list, err := s.manager.List(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list jobs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list jobs failed")
		return
	}
	if list == nil {
		list = []model.Job{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *apiServer) handleGet(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *apiServer) handleResult(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}

	switch job.Status {
	case model.JobStatusSucceeded:
	case model.JobStatusFailed:
		writeJSON(w, http.StatusConflict, map[string]string{
			"status": string(job.Status),
			"error":  job.Error,
		})
		return
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": string(job.Status)})
		return
	}

	built, err := docio.ReadJSON[model.CapitalStructure](job.Result.BuiltJSONPath)
	if err != nil {
		zap.L().Error("api: read built artifact", zap.String("job_id", job.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "job artifacts are missing")
		return
	}
	assessment, err := docio.ReadJSON[model.Assessment](assessmentPath(s.manager, job.ID))
	if err != nil {
		zap.L().Error("api: read assessment artifact", zap.String("job_id", job.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "job artifacts are missing")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job":        job,
		"built":      built,
		"assessment": assessment,
	})
}

func (s *apiServer) handleDownloadHTML(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupSucceeded(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="capital_structure.html"`)
	http.ServeFile(w, r, job.Result.HTMLPath)
}

func (s *apiServer) handleDownloadJSON(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupSucceeded(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="built.json"`)
	http.ServeFile(w, r, job.Result.BuiltJSONPath)
}

func (s *apiServer) handleCleanup(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if err := s.manager.Cleanup(r.Context(), jobID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		zap.L().Error("api: cleanup", zap.String("job_id", jobID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cleanup failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) lookupJob(w http.ResponseWriter, r *http.Request) (*model.Job, bool) {
	jobID := chi.URLParam(r, "id")
	job, err := s.manager.Get(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return nil, false
	}
	return job, true
}

func (s *apiServer) lookupSucceeded(w http.ResponseWriter, r *http.Request) (*model.Job, bool) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return nil, false
	}
	if job.Status != model.JobStatusSucceeded || job.Result == nil {
		writeError(w, http.StatusConflict, "job has not succeeded")
		return nil, false
	}
	return job, true
}

func assessmentPath(m *jobs.Manager, jobID string) string {
	return filepath.Join(m.OutputDir(jobID), jobs.AssessmentFile)
}
