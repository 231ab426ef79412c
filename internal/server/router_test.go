package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/northrook/profiler/internal/report"
)

type startCall struct {
	name, category, note string
}

type fakeSource struct {
	enabled bool
	starts  []startCall
	snaps   []startCall
	stops   []startCall
	stopN   int
	rows    []report.Summary
}

func (f *fakeSource) StartEvent(name, category, note string) bool {
	if !f.enabled {
		return false
	}
	f.starts = append(f.starts, startCall{name, category, note})
	return true
}

func (f *fakeSource) StopEvents(name, category string) int {
	f.stops = append(f.stops, startCall{name: name, category: category})
	return f.stopN
}

func (f *fakeSource) TakeSnapshot(name, category, note string) bool {
	if !f.enabled {
		return false
	}
	f.snaps = append(f.snaps, startCall{name, category, note})
	return true
}

func (f *fakeSource) Enable()       { f.enabled = true }
func (f *fakeSource) Disable()      { f.enabled = false }
func (f *fakeSource) Enabled() bool { return f.enabled }

func (f *fakeSource) Summaries() []report.Summary { return f.rows }

func newTestRouter(src Source) http.Handler {
	gin.SetMode(gin.TestMode)
	return NewRouter(src, "/prof").Handler()
}

func doReq(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func sampleRows() []report.Summary {
	return []report.Summary{
		{Category: "database", Name: "query", Records: 2, DurationMS: 120, PeakMemory: 3 << 20, MemoryMiB: 3},
		{Category: "view", Name: "render", Records: 1, DurationMS: 80},
	}
}

func TestEventsListsAllAndFilters(t *testing.T) {
	src := &fakeSource{enabled: true, rows: sampleRows()}
	h := newTestRouter(src)

	w := doReq(t, h, http.MethodGet, "/prof/events")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var rows []report.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	w = doReq(t, h, http.MethodGet, "/prof/events?category=database")
	rows = nil
	_ = json.Unmarshal(w.Body.Bytes(), &rows)
	if len(rows) != 1 || rows[0].Name != "query" {
		t.Fatalf("filtered rows: %+v", rows)
	}

	w = doReq(t, h, http.MethodGet, "/prof/events?name=render")
	rows = nil
	_ = json.Unmarshal(w.Body.Bytes(), &rows)
	if len(rows) != 1 || rows[0].Category != "view" {
		t.Fatalf("filtered rows: %+v", rows)
	}

	// Namespaced categories collapse before matching.
	w = doReq(t, h, http.MethodGet, "/prof/events?category=App%5CDatabase")
	rows = nil
	_ = json.Unmarshal(w.Body.Bytes(), &rows)
	if len(rows) != 1 || rows[0].Name != "query" {
		t.Fatalf("namespaced filter rows: %+v", rows)
	}

	if w := doReq(t, h, http.MethodGet, "/prof/events?name=bad%20name"); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid name filter status %d", w.Code)
	}
}

func TestStartValidatesAndRecords(t *testing.T) {
	src := &fakeSource{enabled: true}
	h := newTestRouter(src)

	if w := doReq(t, h, http.MethodPost, "/prof/start"); w.Code != http.StatusBadRequest {
		t.Fatalf("missing name status %d", w.Code)
	}
	if w := doReq(t, h, http.MethodPost, "/prof/start?name=bad%20name"); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid name status %d", w.Code)
	}
	if w := doReq(t, h, http.MethodPost, "/prof/start?name=query&category=bad%20cat"); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid category status %d", w.Code)
	}

	w := doReq(t, h, http.MethodPost, "/prof/start?name=query&category=database&note=first")
	if w.Code != http.StatusOK {
		t.Fatalf("start status %d: %s", w.Code, w.Body.String())
	}
	if len(src.starts) != 1 || src.starts[0] != (startCall{"query", "database", "first"}) {
		t.Fatalf("recorded starts: %+v", src.starts)
	}
}

func TestStartWhileDisabledConflicts(t *testing.T) {
	src := &fakeSource{enabled: false}
	h := newTestRouter(src)
	w := doReq(t, h, http.MethodPost, "/prof/start?name=query")
	if w.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409", w.Code)
	}
	if len(src.starts) != 0 {
		t.Fatalf("disabled start recorded: %+v", src.starts)
	}
}

func TestStopRequiresSelector(t *testing.T) {
	src := &fakeSource{enabled: true, stopN: 2}
	h := newTestRouter(src)

	if w := doReq(t, h, http.MethodPost, "/prof/stop"); w.Code != http.StatusBadRequest {
		t.Fatalf("missing selector status %d", w.Code)
	}

	w := doReq(t, h, http.MethodPost, "/prof/stop?name=flush")
	if w.Code != http.StatusOK {
		t.Fatalf("stop status %d", w.Code)
	}
	var resp struct {
		Stopped int `json:"stopped"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Stopped != 2 {
		t.Fatalf("stopped=%d", resp.Stopped)
	}
	if len(src.stops) != 1 || src.stops[0].name != "flush" {
		t.Fatalf("recorded stops: %+v", src.stops)
	}

	// Category-only addressing is fine.
	if w := doReq(t, h, http.MethodPost, "/prof/stop?category=batch"); w.Code != http.StatusOK {
		t.Fatalf("category stop status %d", w.Code)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	src := &fakeSource{enabled: true}
	h := newTestRouter(src)
	w := doReq(t, h, http.MethodPost, "/prof/snapshot?name=import&note=halfway")
	if w.Code != http.StatusOK {
		t.Fatalf("snapshot status %d", w.Code)
	}
	if len(src.snaps) != 1 || src.snaps[0].note != "halfway" {
		t.Fatalf("recorded snapshots: %+v", src.snaps)
	}
}

func TestEnableDisableAndState(t *testing.T) {
	src := &fakeSource{enabled: true, rows: sampleRows()}
	h := newTestRouter(src)

	if w := doReq(t, h, http.MethodPost, "/prof/disable"); w.Code != http.StatusOK {
		t.Fatalf("disable status %d", w.Code)
	}
	if src.enabled {
		t.Fatalf("disable not applied")
	}

	w := doReq(t, h, http.MethodGet, "/prof/state")
	var st struct {
		Enabled bool `json:"enabled"`
		Events  int  `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Enabled || st.Events != 2 {
		t.Fatalf("state: %+v", st)
	}

	if w := doReq(t, h, http.MethodPost, "/prof/enable"); w.Code != http.StatusOK {
		t.Fatalf("enable status %d", w.Code)
	}
	if !src.enabled {
		t.Fatalf("enable not applied")
	}
}

func TestReportEndpointRendersText(t *testing.T) {
	src := &fakeSource{enabled: true, rows: sampleRows()}
	h := newTestRouter(src)
	w := doReq(t, h, http.MethodGet, "/prof/report")
	if w.Code != http.StatusOK {
		t.Fatalf("report status %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "CATEGORY") || !strings.Contains(body, "database") {
		t.Fatalf("report body:\n%s", body)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type %q", ct)
	}
}

func TestBasePathSanitizing(t *testing.T) {
	src := &fakeSource{enabled: true}
	gin.SetMode(gin.TestMode)

	h := NewRouter(src, "prof/").Handler()
	if w := doReq(t, h, http.MethodGet, "/prof/state"); w.Code != http.StatusOK {
		t.Fatalf("base without slash: status %d", w.Code)
	}

	h = NewRouter(src, "").Handler()
	if w := doReq(t, h, http.MethodGet, "/state"); w.Code != http.StatusOK {
		t.Fatalf("empty base: status %d", w.Code)
	}
}
