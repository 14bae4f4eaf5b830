package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ARAGRAGMED/scraper-cours-comptes/internal/scraper"
)

type fakeRunner struct {
	results []scraper.PublicationRecord
	summary scraper.RunSummary
	state   scraper.RunState
	lastRun *scraper.RunSummary

	entered chan struct{}
	release chan struct{}
}

func (r *fakeRunner) Run(_ context.Context, _ scraper.RunOptions) scraper.RunSummary {
	if r.entered != nil {
		close(r.entered)
		r.entered = nil
	}
	if r.release != nil {
		<-r.release
	}
	return r.summary
}

func (r *fakeRunner) Results() []scraper.PublicationRecord { return r.results }
func (r *fakeRunner) State() scraper.RunState              { return r.state }
func (r *fakeRunner) LastRun() *scraper.RunSummary         { return r.lastRun }

type fakeReader struct {
	snap scraper.Snapshot
	err  error
	year int
}

func (f *fakeReader) Read(year int) (scraper.Snapshot, error) {
	f.year = year
	return f.snap, f.err
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func intPtr(v int) *int { return &v }

func testRecords() []scraper.PublicationRecord {
	return []scraper.PublicationRecord{
		{Title: "Rapport annuel", Year: intPtr(2026), Category: "Rapport annuel"},
		{Title: "Référé n° 5", Year: intPtr(2026), Category: "Référé"},
		{Title: "Vieux rapport", Year: intPtr(2025), Category: "Rapport annuel"},
	}
}

func newTestServer(runner Runner, reader SnapshotReader) *Server {
	return NewServer(runner, reader, fixedClock{t: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)}, zap.NewNop())
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerHealthz(t *testing.T) {
	s := newTestServer(&fakeRunner{}, nil)
	rec := doRequest(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServerListPublications(t *testing.T) {
	s := newTestServer(&fakeRunner{results: testRecords()}, nil)

	rec := doRequest(t, s, http.MethodGet, "/v1/publications", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success      bool                        `json:"success"`
		Count        int                         `json:"count"`
		Publications []scraper.PublicationRecord `json:"publications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, 3, resp.Count)
}

func TestServerListPublicationsFilters(t *testing.T) {
	s := newTestServer(&fakeRunner{results: testRecords()}, nil)

	rec := doRequest(t, s, http.MethodGet, "/v1/publications?year=2026&category=référé", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count        int                         `json:"count"`
		Publications []scraper.PublicationRecord `json:"publications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	require.Equal(t, "Référé n° 5", resp.Publications[0].Title)
}

func TestServerListPublicationsBadYear(t *testing.T) {
	s := newTestServer(&fakeRunner{}, nil)
	rec := doRequest(t, s, http.MethodGet, "/v1/publications?year=abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServerPublicationsByYearPath(t *testing.T) {
	s := newTestServer(&fakeRunner{results: testRecords()}, nil)

	rec := doRequest(t, s, http.MethodGet, "/v1/publications/2025", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count        int                         `json:"count"`
		Publications []scraper.PublicationRecord `json:"publications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	require.Equal(t, "Vieux rapport", resp.Publications[0].Title)
}

func TestServerSnapshotFallback(t *testing.T) {
	reader := &fakeReader{snap: scraper.Snapshot{Data: testRecords()}}
	s := newTestServer(&fakeRunner{}, reader)

	rec := doRequest(t, s, http.MethodGet, "/v1/publications", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Count)
	require.Equal(t, 2026, reader.year, "fallback must read the current year's snapshot")
}

func TestServerCategories(t *testing.T) {
	s := newTestServer(&fakeRunner{}, nil)
	rec := doRequest(t, s, http.MethodGet, "/v1/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, scraper.PublicationCategories, resp.Categories)
}

func TestServerStats(t *testing.T) {
	s := newTestServer(&fakeRunner{results: testRecords()}, nil)
	rec := doRequest(t, s, http.MethodGet, "/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Total      int            `json:"total"`
		ByCategory map[string]int `json:"by_category"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Total)
	require.Equal(t, 2, resp.ByCategory["Rapport annuel"])
}

func TestServerStatus(t *testing.T) {
	last := scraper.RunSummary{RunID: "run-1", Success: true, Count: 3}
	s := newTestServer(&fakeRunner{state: scraper.StateCompleted, lastRun: &last}, nil)

	rec := doRequest(t, s, http.MethodGet, "/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Running bool                `json:"running"`
		State   string              `json:"state"`
		LastRun *scraper.RunSummary `json:"last_run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Running)
	require.Equal(t, string(scraper.StateCompleted), resp.State)
	require.NotNil(t, resp.LastRun)
	require.Equal(t, "run-1", resp.LastRun.RunID)
}

func TestServerTriggerScrape(t *testing.T) {
	runner := &fakeRunner{summary: scraper.RunSummary{RunID: "run-9", Success: true, Count: 4}}
	s := newTestServer(runner, nil)

	rec := doRequest(t, s, http.MethodPost, "/v1/scrape", `{"force_rescrape": true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp scraper.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "run-9", resp.RunID)
}

func TestServerTriggerScrapeFailure(t *testing.T) {
	runner := &fakeRunner{summary: scraper.RunSummary{Success: false, Message: "fetch publications page"}}
	s := newTestServer(runner, nil)

	rec := doRequest(t, s, http.MethodPost, "/v1/scrape", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServerTriggerScrapeConflict(t *testing.T) {
	runner := &fakeRunner{
		summary: scraper.RunSummary{Success: true},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	entered := runner.entered
	s := newTestServer(runner, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		doRequest(t, s, http.MethodPost, "/v1/scrape", "")
	}()

	<-entered
	rec := doRequest(t, s, http.MethodPost, "/v1/scrape", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	close(runner.release)
	<-done
}

func TestServerTriggerScrapeBadJSON(t *testing.T) {
	s := newTestServer(&fakeRunner{}, nil)
	rec := doRequest(t, s, http.MethodPost, "/v1/scrape", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
