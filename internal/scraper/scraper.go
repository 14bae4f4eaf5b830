package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ARAGRAGMED/scraper-cours-comptes/internal/metrics"
)

// Default source URLs for the Court of Accounts website.
const (
	DefaultBaseURL         = "https://www.courdescomptes.ma"
	DefaultPublicationsURL = DefaultBaseURL + "/publications/"
)

const extractionLevel = "Enhanced with publication details and PDF links"

// Settings configures the run orchestrator.
type Settings struct {
	BaseURL         string
	PublicationsURL string
	ForceRescrape   bool
	ShowProgress    bool
}

// RunOptions carries per-run overrides.
//
// MaxPages is accepted for caller compatibility but ignored beyond a log
// line: the source site serves identical content for every page parameter,
// so a single listing request covers everything.
type RunOptions struct {
	MaxPages      int
	ForceRescrape *bool
}

// Scraper orchestrates a scrape run: it checks the existing snapshot,
// decides skip vs. scrape, runs listing and detail extraction, dedups,
// persists, and reports a summary. It holds the last extracted record set
// in memory so the serving layer can read it without re-opening the file.
type Scraper struct {
	settings Settings
	fetcher  Fetcher
	listing  *ListingExtractor
	store    SnapshotStore
	clock    Clock
	idGen    IDGenerator
	logger   *zap.Logger

	mu      sync.Mutex
	state   RunState
	results []PublicationRecord
	lastRun *RunSummary
}

// New constructs a Scraper.
func New(
	settings Settings,
	fetcher Fetcher,
	listing *ListingExtractor,
	store SnapshotStore,
	clk Clock,
	idGen IDGenerator,
	logger *zap.Logger,
) *Scraper {
	if settings.BaseURL == "" {
		settings.BaseURL = DefaultBaseURL
	}
	if settings.PublicationsURL == "" {
		settings.PublicationsURL = DefaultPublicationsURL
	}
	return &Scraper{
		settings: settings,
		fetcher:  fetcher,
		listing:  listing,
		store:    store,
		clock:    clk,
		idGen:    idGen,
		logger:   logger,
		state:    StateIdle,
	}
}

// Run executes one scrape. It always returns a structured summary; no
// extraction-layer failure escapes to the caller.
func (s *Scraper) Run(ctx context.Context, opts RunOptions) RunSummary {
	runID := s.newRunID()
	started := s.clock.Now()
	year := started.Year()

	force := s.settings.ForceRescrape
	if opts.ForceRescrape != nil {
		force = *opts.ForceRescrape
	}

	if s.settings.ShowProgress {
		s.logger.Info("starting publications scrape",
			zap.String("run_id", runID),
			zap.Int("year", year),
			zap.Bool("force_rescrape", force),
		)
	}

	s.setState(StateCheckingExisting)
	if !force {
		count, err := s.store.ExistingCount(year)
		switch {
		case err != nil:
			s.logger.Warn("existing snapshot check failed, scraping anyway", zap.Error(err))
		case count > 0:
			s.setState(StateSkipped)
			summary := RunSummary{
				RunID:    runID,
				Success:  true,
				Skipped:  true,
				Count:    count,
				Message:  fmt.Sprintf("snapshot already holds %d publications for %d; set force_rescrape to re-scrape", count, year),
				Started:  started,
				Duration: s.clock.Now().Sub(started),
			}
			s.finish(summary, nil)
			metrics.ObserveRun("skipped")
			return summary
		}
	}

	s.setState(StateScraping)
	if opts.MaxPages > 0 {
		s.logger.Debug("page parameter ignored; the site serves identical content for every page",
			zap.Int("max_pages", opts.MaxPages),
		)
	}

	page, err := s.fetcher.Fetch(ctx, s.settings.PublicationsURL)
	if err != nil {
		return s.fail(runID, started, "fetch publications page", err)
	}

	s.setState(StateExtracting)
	records, err := s.listing.Extract(ctx, page.Body, s.settings.BaseURL, year)
	if err != nil {
		return s.fail(runID, started, "extract publications", err)
	}
	if len(records) == 0 {
		return s.fail(runID, started, "no publications found", nil)
	}

	unique := Dedup(records)
	if s.settings.ShowProgress {
		s.logger.Info("extraction finished",
			zap.Int("extracted", len(records)),
			zap.Int("unique", len(unique)),
		)
	}

	s.setState(StatePersisting)
	snapshot := s.buildSnapshot(unique, force)
	if err := s.store.Write(year, snapshot); err != nil {
		// Keep the extracted records reachable so the caller can retry
		// persistence without re-fetching.
		summary := s.fail(runID, started, "persist snapshot", err)
		s.setResults(unique)
		return summary
	}
	s.setResults(unique)

	s.setState(StateCompleted)
	summary := RunSummary{
		RunID:    runID,
		Success:  true,
		Count:    len(unique),
		Message:  fmt.Sprintf("scraped %d publications for %d", len(unique), year),
		Sample:   sampleOf(unique, 5),
		Started:  started,
		Duration: s.clock.Now().Sub(started),
	}
	s.finish(summary, unique)
	metrics.ObserveRun("completed")

	if s.settings.ShowProgress {
		s.logger.Info("scraping complete", zap.Int("count", summary.Count))
		for i, entry := range summary.Sample {
			s.logger.Info("sample publication",
				zap.Int("n", i+1),
				zap.String("date", entry.Date),
				zap.String("title", truncate(entry.Title, 80)),
				zap.String("category", entry.Category),
			)
		}
	}
	return summary
}

// Results returns a copy of the last extracted record set.
func (s *Scraper) Results() []PublicationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PublicationRecord, len(s.results))
	copy(out, s.results)
	return out
}

// State reports the orchestrator's current lifecycle state.
func (s *Scraper) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastRun returns the most recent run summary, or nil before the first run.
func (s *Scraper) LastRun() *RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return nil
	}
	cp := *s.lastRun
	return &cp
}

func (s *Scraper) fail(runID string, started time.Time, msg string, err error) RunSummary {
	s.setState(StateFailed)
	if err != nil {
		s.logger.Error("scrape run failed", zap.String("run_id", runID), zap.String("stage", msg), zap.Error(err))
		msg = fmt.Sprintf("%s: %v", msg, err)
	} else {
		s.logger.Error("scrape run failed", zap.String("run_id", runID), zap.String("stage", msg))
	}
	summary := RunSummary{
		RunID:    runID,
		Success:  false,
		Message:  msg,
		Started:  started,
		Duration: s.clock.Now().Sub(started),
	}
	s.finish(summary, nil)
	metrics.ObserveRun("failed")
	return summary
}

func (s *Scraper) buildSnapshot(records []PublicationRecord, force bool) Snapshot {
	return Snapshot{
		ScrapedAt:       s.clock.Now(),
		TotalItems:      len(records),
		SourceWebsite:   s.settings.PublicationsURL,
		ExtractionLevel: extractionLevel,
		Categories:      PublicationCategories,
		DedupEnabled:    !force,
		Data:            records,
	}
}

func (s *Scraper) newRunID() string {
	if s.idGen == nil {
		return ""
	}
	id, err := s.idGen.NewID()
	if err != nil {
		s.logger.Warn("run id generation failed", zap.Error(err))
		return ""
	}
	return id
}

func (s *Scraper) setState(state RunState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Scraper) setResults(records []PublicationRecord) {
	s.mu.Lock()
	s.results = records
	s.mu.Unlock()
}

func (s *Scraper) finish(summary RunSummary, results []PublicationRecord) {
	s.mu.Lock()
	s.lastRun = &summary
	if results != nil {
		s.results = results
	}
	s.mu.Unlock()
}

func sampleOf(records []PublicationRecord, n int) []RunSample {
	if len(records) < n {
		n = len(records)
	}
	sample := make([]RunSample, 0, n)
	for _, rec := range records[:n] {
		sample = append(sample, RunSample{
			Date:     rec.Date,
			Title:    rec.Title,
			Category: rec.Category,
		})
	}
	return sample
}
