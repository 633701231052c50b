package httpserver

import (
	"bytes"
	"context"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/serialscope/internal/chart"
	"github.com/tinytelemetry/serialscope/internal/ingest"
	"github.com/tinytelemetry/serialscope/internal/names"
	"github.com/tinytelemetry/serialscope/internal/patterns"
	"github.com/tinytelemetry/serialscope/internal/table"
)

const (
	eventsSubscriberID = "http"
	eventBuffer        = 1024
	defaultPatternTop  = 20
)

// TableReader is the narrow store contract required by the HTTP API.
type TableReader interface {
	Snapshot() table.Snapshot
	Tail(n int) table.Snapshot
}

// NameRegistry is the mutable recognized-name set.
type NameRegistry interface {
	Add(name string) bool
	Remove(name string) bool
	Clear()
	List() []string
}

// StatusProvider reports the reader connection.
type StatusProvider interface {
	Status() ingest.Status
}

// EventSource is the store's change feed.
type EventSource interface {
	Subscribe(id string, ch chan<- table.Event) error
	Unsubscribe(id string) error
	SubscriberStats(id string) (table.DeliveryStats, error)
}

// PatternSource reports templates of lines the parser dropped.
type PatternSource interface {
	Stats() (patterns, lines int)
	Top(n int) []patterns.Pattern
}

// Config wires the server to the running pipeline.
type Config struct {
	Addr           string
	Table          TableReader
	Names          NameRegistry
	Reader         StatusProvider
	Events         EventSource   // optional; enables /api/events
	Patterns       PatternSource // optional; enables /api/patterns
	WindowDuration time.Duration
	// OnNamesChanged is called after any successful name mutation.
	OnNamesChanged func(names []string)
}

// Server provides a local HTTP API over the live table and name set.
type Server struct {
	cfg       Config
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time

	subscribed bool
	counts     [table.EventCleared + 1]atomic.Uint64
}

// NewServer creates a new HTTP API server. When cfg.Events is set the
// server subscribes to table changes until Stop.
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8765"
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	if cfg.Events != nil {
		ch := make(chan table.Event, eventBuffer)
		if err := cfg.Events.Subscribe(eventsSubscriberID, ch); err != nil {
			log.Printf("httpserver: subscribe to table events: %v", err)
		} else {
			s.subscribed = true
			go s.countEvents(ch)
		}
	}
	return s
}

func (s *Server) countEvents(ch <-chan table.Event) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-ch:
			if int(ev.Kind) < len(s.counts) {
				s.counts[ev.Kind].Add(1)
			}
		}
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/table", s.handleTable)
	api.GET("/chart", s.handleChart)
	api.GET("/names", s.handleListNames)
	api.POST("/names", s.handleAddName)
	api.DELETE("/names/:name", s.handleRemoveName)
	api.DELETE("/names", s.handleClearNames)
	api.GET("/export.csv", s.handleExportCSV)
	api.GET("/reader", s.handleReader)
	api.GET("/events", s.handleEvents)
	api.GET("/patterns", s.handlePatterns)
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts down the HTTP server and drops the table
// subscription.
func (s *Server) Stop() error {
	s.cancel()
	if s.subscribed {
		_ = s.cfg.Events.Unsubscribe(eventsSubscriberID)
	}
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

func (s *Server) handleTable(c *gin.Context) {
	var snap table.Snapshot
	if raw := c.Query("tail"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tail must be a non-negative integer"})
			return
		}
		snap = s.cfg.Table.Tail(n)
	} else {
		snap = s.cfg.Table.Snapshot()
	}

	rows := make([][]string, len(snap.Rows))
	for i, r := range snap.Rows {
		rows[i] = r.Fields()
	}
	c.JSON(http.StatusOK, gin.H{
		"headers":   snap.Headers,
		"rows":      rows,
		"row_count": len(rows),
	})
}

type pointJSON struct {
	T time.Time `json:"t"`
	V float64   `json:"v"`
}

type seriesJSON struct {
	Name   string      `json:"name"`
	Points []pointJSON `json:"points"`
}

// handleChart computes a live trailing window independent of any
// window the TUI may have scrolled.
func (s *Server) handleChart(c *gin.Context) {
	w := chart.NewWindow(chart.Config{Duration: s.cfg.WindowDuration})
	v := w.Refresh(s.cfg.Table.Snapshot())

	series := make([]seriesJSON, len(v.Series))
	for i, sr := range v.Series {
		pts := make([]pointJSON, len(sr.Points))
		for j, p := range sr.Points {
			pts[j] = pointJSON{T: p.Time, V: p.Value}
		}
		series[i] = seriesJSON{Name: sr.Name, Points: pts}
	}
	c.JSON(http.StatusOK, gin.H{
		"start":  v.Start,
		"end":    v.End,
		"y_min":  v.YMin,
		"y_max":  v.YMax,
		"series": series,
	})
}

func (s *Server) handleListNames(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"names": s.cfg.Names.List()})
}

func (s *Server) handleAddName(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing name field"})
		return
	}
	name := names.Sanitize(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is empty after sanitizing"})
		return
	}
	if !s.cfg.Names.Add(name) {
		c.JSON(http.StatusConflict, gin.H{"error": "name already tracked", "name": name})
		return
	}
	s.namesChanged()
	c.JSON(http.StatusCreated, gin.H{"name": name})
}

func (s *Server) handleRemoveName(c *gin.Context) {
	if !s.cfg.Names.Remove(c.Param("name")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "name not tracked"})
		return
	}
	s.namesChanged()
	c.Status(http.StatusNoContent)
}

func (s *Server) handleClearNames(c *gin.Context) {
	s.cfg.Names.Clear()
	s.namesChanged()
	c.Status(http.StatusNoContent)
}

func (s *Server) handleExportCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.cfg.Table.Snapshot().WriteCSV(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode table"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="serialscope.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) handleReader(c *gin.Context) {
	if s.cfg.Reader == nil {
		c.JSON(http.StatusOK, ingest.Status{State: ingest.StateStopped.String()})
		return
	}
	c.JSON(http.StatusOK, s.cfg.Reader.Status())
}

// handleEvents reports how many table changes of each kind the server has
// observed, plus delivery counters for its subscription.
func (s *Server) handleEvents(c *gin.Context) {
	if !s.subscribed {
		c.JSON(http.StatusNotFound, gin.H{"error": "table events not available"})
		return
	}
	body := gin.H{}
	for k := range s.counts {
		body[table.EventKind(k).String()] = s.counts[k].Load()
	}
	if st, err := s.cfg.Events.SubscriberStats(eventsSubscriberID); err == nil {
		body["delivered"] = st.Sent
		body["dropped"] = st.Dropped
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handlePatterns(c *gin.Context) {
	if s.cfg.Patterns == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "pattern mining not enabled"})
		return
	}
	n := defaultPatternTop
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		n = v
	}
	count, lines := s.cfg.Patterns.Stats()
	top := s.cfg.Patterns.Top(n)
	if top == nil {
		top = []patterns.Pattern{}
	}
	c.JSON(http.StatusOK, gin.H{
		"pattern_count": count,
		"line_count":    lines,
		"patterns":      top,
	})
}

func (s *Server) namesChanged() {
	if s.cfg.OnNamesChanged != nil {
		s.cfg.OnNamesChanged(s.cfg.Names.List())
	}
}
