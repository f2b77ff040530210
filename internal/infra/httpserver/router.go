package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	memstore "github.com/Jimstew23/smlgpt-pipeline/internal/application/memory"
	"github.com/Jimstew23/smlgpt-pipeline/internal/application/pipeline"
	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/assessment"
	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/vision"
	"github.com/Jimstew23/smlgpt-pipeline/internal/middleware"
)

// maxUploadBytes caps an uploaded image at 20 MiB, matching the source
// system's upload limit.
const maxUploadBytes = 20 << 20

type Router struct {
	pipe    *pipeline.Service
	records assessment.Repository
	memory  *memstore.Store
}

func NewRouter(pipe *pipeline.Service, records assessment.Repository, memory *memstore.Store) http.Handler {
	r := &Router{pipe: pipe, records: records, memory: memory}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Get("/metrics", r.handleMetrics)

	mux.Route("/v1/{site}", func(rt chi.Router) {
		rt.Post("/assessments", r.wrap(r.handleAssess))
		rt.Get("/assessments", r.wrap(r.handleList))
		rt.Get("/assessments/latest", r.wrap(r.handleLatest))
		rt.Get("/assessments/{id}", r.wrap(r.handleGet))
		rt.Get("/summary", r.wrap(r.handleSummary))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, vision.ErrQuotaExceeded):
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
			case errors.Is(err, assessment.ErrTransientService):
				http.Error(w, "vision service unavailable, retry later", http.StatusServiceUnavailable)
			case errors.Is(err, assessment.ErrMalformedResponse):
				http.Error(w, "analysis failed: "+err.Error(), http.StatusUnprocessableEntity)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

// POST /v1/{site}/assessments
// Multipart body with an image under the "file" field. Runs the pipeline
// synchronously and returns the assembled record.
func (r *Router) handleAssess(w http.ResponseWriter, req *http.Request) error {
	site := chi.URLParam(req, "site")
	if err := middleware.ValidateSiteID(site); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	req.Body = http.MaxBytesReader(w, req.Body, maxUploadBytes)
	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart body: "+err.Error(), http.StatusBadRequest)
		return nil
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return nil
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("reading upload: %w", err)
	}
	if err := middleware.ValidateImageUpload(header.Filename, data); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	middleware.IncrementAssessments()
	rec, err := r.pipe.AssessHazards(req.Context(), site, data, header.Filename)
	if err != nil {
		middleware.IncrementAssessmentsFailed()
		return err
	}
	if rec.StopWorkRequired {
		middleware.IncrementStopWork()
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(rec)
}

// GET /v1/{site}/assessments?page=&page_size=&risk_level=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	site := chi.URLParam(req, "site")
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	filters := map[string]interface{}{}
	if level := req.URL.Query().Get("risk_level"); level != "" {
		filters["risk_level"] = level
	}
	if stop := req.URL.Query().Get("stop_work"); stop != "" {
		filters["stop_work"] = stop == "true"
	}

	result, err := r.records.Paginate(req.Context(), site, page, middleware.ValidateLimit(size), filters)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(result)
}

// GET /v1/{site}/assessments/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	site := chi.URLParam(req, "site")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.records.Latest(req.Context(), site, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{site}/assessments/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	site := chi.URLParam(req, "site")
	id := chi.URLParam(req, "id")

	rec, err := r.records.Get(req.Context(), site, assessment.RecordID(id))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(rec)
}

// GET /v1/{site}/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	site := chi.URLParam(req, "site")
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))

	summary, err := r.records.Summary(req.Context(), site, middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(summary)
}

// GET /metrics
func (r *Router) handleMetrics(w http.ResponseWriter, req *http.Request) {
	m := middleware.GetMetrics()
	if r.memory != nil {
		m["memory_entries"] = r.memory.Len()
		m["memory_patterns"] = r.memory.LevelCounts()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m)
}
