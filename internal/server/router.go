package server

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/northrook/profiler/internal/naming"
	"github.com/northrook/profiler/internal/report"
)

// Source is the profiler surface the router drives. The facade at the
// repository root provides an implementation that serializes access to
// the underlying registry.
type Source interface {
	StartEvent(name, category, note string) bool
	StopEvents(name, category string) int
	TakeSnapshot(name, category, note string) bool
	Enable()
	Disable()
	Enabled() bool
	Summaries() []report.Summary
}

// Router provides embeddable HTTP handlers exposing a profiler.
// Endpoints:
//
//	GET  {basePath}/events    query: category=...&name=... (both optional filters)
//	GET  {basePath}/report    text table
//	GET  {basePath}/state     switch state and event count
//	POST {basePath}/start     query: name=... (required), category=..., note=...
//	POST {basePath}/stop      query: name=... and/or category=... (one required)
//	POST {basePath}/snapshot  query: name=... (required), category=..., note=...
//	POST {basePath}/enable
//	POST {basePath}/disable
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	src      Source
	basePath string
}

// NewRouter constructs a Router with a configurable basePath.
// Example basePath: "/prof" results in /prof/events, /prof/start, ...
func NewRouter(src Source, basePath string) *Router {
	return &Router{src: src, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in
// any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/events", r.handleEvents)
	group.GET("/report", r.handleReport)
	group.GET("/state", r.handleState)
	group.POST("/start", r.handleStart)
	group.POST("/stop", r.handleStop)
	group.POST("/snapshot", r.handleSnapshot)
	group.POST("/enable", r.handleEnable)
	group.POST("/disable", r.handleDisable)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// The returned server can be shut down via http.Server's Close.
func NewServer(addr, basePath string, src Source) (*http.Server, error) {
	r := NewRouter(src, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type stopResp struct {
	Stopped int `json:"stopped"`
}

type stateResp struct {
	Enabled bool `json:"enabled"`
	Events  int  `json:"events"`
}

func (r *Router) handleEvents(c *gin.Context) {
	category := c.Query("category")
	name := c.Query("name")
	if category != "" && !naming.ValidName(category) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid category"})
		return
	}
	if name != "" && !naming.ValidName(name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid name"})
		return
	}
	rows := r.src.Summaries()
	if category != "" || name != "" {
		category = naming.Category(category)
		filtered := make([]report.Summary, 0, len(rows))
		for _, row := range rows {
			if category != "" && row.Category != category {
				continue
			}
			if name != "" && row.Name != name {
				continue
			}
			filtered = append(filtered, row)
		}
		rows = filtered
	}
	writeJSON(c, http.StatusOK, rows)
}

func (r *Router) handleReport(c *gin.Context) {
	var buf bytes.Buffer
	if err := (report.Text{W: &buf}).Write(r.src.Summaries()); err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}

func (r *Router) handleState(c *gin.Context) {
	writeJSON(c, http.StatusOK, stateResp{
		Enabled: r.src.Enabled(),
		Events:  len(r.src.Summaries()),
	})
}

func (r *Router) handleStart(c *gin.Context) {
	name, category, ok := r.eventParams(c)
	if !ok {
		return
	}
	if !r.src.StartEvent(name, category, c.Query("note")) {
		writeJSON(c, http.StatusConflict, errorResp{Error: "profiling disabled"})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleSnapshot(c *gin.Context) {
	name, category, ok := r.eventParams(c)
	if !ok {
		return
	}
	if !r.src.TakeSnapshot(name, category, c.Query("note")) {
		writeJSON(c, http.StatusConflict, errorResp{Error: "profiling disabled"})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStop(c *gin.Context) {
	name := c.Query("name")
	category := c.Query("category")
	if name == "" && category == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name or category query param required"})
		return
	}
	if name != "" && !naming.ValidName(name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid name: allowed alphanumerics and \\ / : . - _"})
		return
	}
	if category != "" && !naming.ValidName(category) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid category"})
		return
	}
	writeJSON(c, http.StatusOK, stopResp{Stopped: r.src.StopEvents(name, category)})
}

func (r *Router) handleEnable(c *gin.Context) {
	r.src.Enable()
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleDisable(c *gin.Context) {
	r.src.Disable()
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

// eventParams validates the name/category pair used by start and
// snapshot. It writes the error response itself and reports success.
func (r *Router) eventParams(c *gin.Context) (string, string, bool) {
	name := c.Query("name")
	if name == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name query param required"})
		return "", "", false
	}
	if !naming.ValidName(name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid name: allowed alphanumerics and \\ / : . - _"})
		return "", "", false
	}
	category := c.Query("category")
	if category != "" && !naming.ValidName(category) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid category"})
		return "", "", false
	}
	return name, category, true
}
