// Package api exposes the HTTP interface for the publications service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ARAGRAGMED/scraper-cours-comptes/internal/metrics"
	"github.com/ARAGRAGMED/scraper-cours-comptes/internal/scraper"
)

// Runner is the orchestrator handle the server drives and reads from.
type Runner interface {
	Run(ctx context.Context, opts scraper.RunOptions) scraper.RunSummary
	Results() []scraper.PublicationRecord
	State() scraper.RunState
	LastRun() *scraper.RunSummary
}

// SnapshotReader loads the persisted snapshot as a fallback when no run has
// happened in this process yet.
type SnapshotReader interface {
	Read(year int) (scraper.Snapshot, error)
}

// Clock mirrors scraper.Clock for request-time year resolution.
type Clock interface {
	Now() time.Time
}

// Server wires HTTP handlers to the scraper and snapshot store.
type Server struct {
	router  chi.Router
	runner  Runner
	reader  SnapshotReader
	clock   Clock
	logger  *zap.Logger
	running atomic.Bool
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner Runner, reader SnapshotReader, clk Clock, logger *zap.Logger) *Server {
	s := &Server{
		runner: runner,
		reader: reader,
		clock:  clk,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/publications", s.listPublications)
		r.Get("/publications/{year}", s.listPublicationsByYear)
		r.Get("/categories", s.listCategories)
		r.Get("/stats", s.getStats)
		r.Get("/status", s.getStatus)
		r.Post("/scrape", s.triggerScrape)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listPublications(w http.ResponseWriter, r *http.Request) {
	var yearFilter *int
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		yearFilter = &year
	}
	category := r.URL.Query().Get("category")

	records := s.publications()
	filtered := filterPublications(records, yearFilter, category)
	writeJSON(w, http.StatusOK, publicationsResponse{
		Success:      true,
		Count:        len(filtered),
		Publications: filtered,
	})
}

func (s *Server) listPublicationsByYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	category := r.URL.Query().Get("category")

	records := s.publications()
	filtered := filterPublications(records, &year, category)
	writeJSON(w, http.StatusOK, publicationsResponse{
		Success:      true,
		Count:        len(filtered),
		Publications: filtered,
	})
}

func (s *Server) listCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"categories": scraper.PublicationCategories,
	})
}

func (s *Server) getStats(w http.ResponseWriter, _ *http.Request) {
	records := s.publications()
	byCategory := map[string]int{}
	var latest time.Time
	for _, rec := range records {
		byCategory[rec.Category]++
		if rec.ScrapedAt.After(latest) {
			latest = rec.ScrapedAt
		}
	}
	stats := map[string]any{
		"success":     true,
		"total":       len(records),
		"by_category": byCategory,
	}
	if !latest.IsZero() {
		stats["last_scraped_at"] = latest
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"success": true,
		"running": s.running.Load(),
		"state":   s.runner.State(),
	}
	if last := s.runner.LastRun(); last != nil {
		resp["last_run"] = last
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) triggerScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	if !s.running.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, "scraping is already running")
		return
	}
	defer s.running.Store(false)

	summary := s.runner.Run(r.Context(), scraper.RunOptions{
		MaxPages:      req.MaxPages,
		ForceRescrape: req.ForceRescrape,
	})

	status := http.StatusOK
	if !summary.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, summary)
}

// publications prefers the in-memory record set from the last run and falls
// back to the persisted snapshot for the current year.
func (s *Server) publications() []scraper.PublicationRecord {
	if records := s.runner.Results(); len(records) > 0 {
		return records
	}
	if s.reader == nil {
		return nil
	}
	snap, err := s.reader.Read(s.clock.Now().Year())
	if err != nil {
		s.logger.Debug("snapshot fallback read failed", zap.Error(err))
		return nil
	}
	return snap.Data
}

func filterPublications(records []scraper.PublicationRecord, year *int, category string) []scraper.PublicationRecord {
	filtered := make([]scraper.PublicationRecord, 0, len(records))
	for _, rec := range records {
		if year != nil && (rec.Year == nil || *rec.Year != *year) {
			continue
		}
		if category != "" && !strings.EqualFold(rec.Category, category) {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered
}

type scrapeRequest struct {
	ForceRescrape *bool `json:"force_rescrape"`
	MaxPages      int   `json:"max_pages"`
}

type publicationsResponse struct {
	Success      bool                        `json:"success"`
	Count        int                         `json:"count"`
	Publications []scraper.PublicationRecord `json:"publications"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}
