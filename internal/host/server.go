// Package host serves the LOGIA Host: the HTTP surface in front of the tool
// registry, the router and the safety dashboard.
package host

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/alucardeht/logia/internal/dashboard"
	"github.com/alucardeht/logia/internal/journal"
	"github.com/alucardeht/logia/internal/logger"
	"github.com/alucardeht/logia/internal/notify"
	"github.com/alucardeht/logia/internal/registry"
	"github.com/alucardeht/logia/internal/router"
)

var log = logger.ForComponent("host")

const (
	DefaultMaxAudioBytes  = 20 << 20
	DefaultRequestTimeout = 90 * time.Second

	RequestIDHeader = "X-Request-ID"
)

type Options struct {
	// Router may be nil; /resolve-disruption then answers 503.
	Router    *router.Router
	Registry  *registry.Registry
	Dashboard *dashboard.Status
	Metrics   *Metrics

	// Journal and Notifier are optional.
	Journal  *journal.Journal
	Notifier notify.Notifier

	AlertOnHigh    bool
	MaxAudioBytes  int64
	RequestTimeout time.Duration
}

type Server struct {
	opts      Options
	startTime time.Time
	mux       *http.ServeMux
}

func NewServer(opts Options) *Server {
	if opts.Registry == nil {
		opts.Registry = registry.New()
	}
	if opts.Dashboard == nil {
		opts.Dashboard = dashboard.New()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.MaxAudioBytes <= 0 {
		opts.MaxAudioBytes = DefaultMaxAudioBytes
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}

	s := &Server{
		opts:      opts,
		startTime: time.Now(),
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("POST /process-audio", s.handleProcessAudio)
	s.mux.HandleFunc("POST /resolve-disruption", s.handleResolve)
	s.mux.HandleFunc("GET /incidents", s.handleIncidents)
	s.mux.Handle("GET /metrics", opts.Metrics.Handler())
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
		r.Header.Set(RequestIDHeader, id)
	}
	w.Header().Set(RequestIDHeader, id)

	start := time.Now()
	s.mux.ServeHTTP(w, r)
	log.Debug("request served", "method", r.Method, "path", r.URL.Path, "request_id", id, "elapsed", time.Since(start))
}

func requestID(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to write response", "error", err)
	}
}

type errorBody struct {
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}
