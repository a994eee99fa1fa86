package fieldbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerStatus is the listener state reported on /health.
type ServerStatus string

const (
	StatusIdle      ServerStatus = "idle"
	StatusListening ServerStatus = "listening"
	StatusClosed    ServerStatus = "closed"
)

// ErrServerDisabled is returned by Start when the bridge is turned off.
var ErrServerDisabled = errors.New("fieldbridge: server disabled")

// Server accepts field controller events over HTTP and hands them to an
// EventProcessor, usually a Feed.
//
//	GET  /health   HealthResponse
//	POST /events   one Event; 202 on success, 410 once the feed has closed
//	GET  /metrics  Prometheus exposition, when a gatherer is configured
type Server struct {
	settings  Settings
	processor EventProcessor
	logger    Logger
	gatherer  prometheus.Gatherer
	clock     func() time.Time

	accepted atomic.Int64
	rejected atomic.Int64
	last     atomic.Value // string, last accepted event type or phase

	mu       sync.Mutex
	http     *http.Server
	listener net.Listener
	status   ServerStatus
	started  time.Time
}

// Option customizes server construction.
type Option func(*Server)

// WithProcessor sets where accepted events go. Without one they are dropped.
func WithProcessor(p EventProcessor) Option {
	return func(s *Server) {
		if p != nil {
			s.processor = p
		}
	}
}

func WithLogger(l Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGatherer serves the gatherer's metrics on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithClock sets the clock used to stamp ServerTime.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewServer builds a server; nothing listens until Start.
func NewServer(settings Settings, opts ...Option) *Server {
	if settings.MaxBodyBytes <= 0 {
		settings.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	s := &Server{
		settings:  settings,
		processor: EventProcessorFunc(func(Event) error { return nil }),
		logger:    nopLogger{},
		clock:     time.Now,
		status:    StatusIdle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /events", s.handleEvent)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start listens on the configured address and serves in the background.
// Request contexts derive from ctx.
func (s *Server) Start(ctx context.Context) error {
	if !s.settings.Enabled {
		return ErrServerDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusIdle {
		return fmt.Errorf("fieldbridge: server is %s", s.status)
	}
	ln, err := net.Listen("tcp", s.settings.Address())
	if err != nil {
		return fmt.Errorf("fieldbridge: listen %s: %w", s.settings.Address(), err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	srv := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: s.settings.Timeout,
		ReadTimeout:       s.settings.Timeout,
		WriteTimeout:      s.settings.Timeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.http, s.listener = srv, ln
	s.status = StatusListening
	s.started = s.clock()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("fieldbridge: serve: %v", err)
		}
	}()
	s.logger.Printf("fieldbridge: listening on %s", ln.Addr())
	return nil
}

// Shutdown drains in-flight requests. A server that never started is a no-op.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusListening {
		return nil
	}
	s.status = StatusClosed
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("fieldbridge: shutdown: %w", err)
	}
	s.logger.Printf("fieldbridge: closed after %d accepted, %d rejected events", s.accepted.Load(), s.rejected.Load())
	return nil
}

// BaseURL is the URL clients should use. Before Start it is derived from the settings.
func (s *Server) BaseURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.settings.URL()
	}
	return "http://" + s.listener.Addr().String()
}

func (s *Server) Status() ServerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Server) health() HealthResponse {
	s.mu.Lock()
	status, started := s.status, s.started
	s.mu.Unlock()
	resp := HealthResponse{
		Status:   string(status),
		Version:  ProtocolVersion,
		Accepted: s.accepted.Load(),
		Rejected: s.rejected.Load(),
	}
	if last, ok := s.last.Load().(string); ok {
		resp.Last = last
	}
	if !started.IsZero() {
		resp.UptimeSeconds = int64(s.clock().Sub(started).Seconds())
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.health())
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	evt, status, err := s.decodeEvent(w, r)
	if err != nil {
		s.reject(w, status, err.Error())
		return
	}
	evt.StampServerTime(s.clock())
	if err := s.processor.HandleEvent(evt); err != nil {
		if errors.Is(err, ErrFeedClosed) {
			s.reject(w, http.StatusGone, err.Error())
			return
		}
		s.logger.Printf("fieldbridge: %s event %s: %v", evt.Type, evt.EventID, err)
		s.reject(w, http.StatusInternalServerError, "event processing failed")
		return
	}
	s.accepted.Add(1)
	if evt.Type == TypePhase {
		s.last.Store(evt.Phase)
	} else {
		s.last.Store(string(evt.Type))
	}
	writeJSON(w, http.StatusAccepted, eventResponse{Status: "accepted", ServerTime: evt.ServerTime})
}

// decodeEvent reads, normalizes and validates one event. On failure it
// returns the HTTP status to answer with.
func (s *Server) decodeEvent(w http.ResponseWriter, r *http.Request) (Event, int, error) {
	var evt Event
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.settings.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return evt, http.StatusRequestEntityTooLarge, fmt.Errorf("payload exceeds %d bytes", tooLarge.Limit)
		}
		return evt, http.StatusBadRequest, errors.New("unable to read body")
	}
	if len(body) == 0 {
		return evt, http.StatusBadRequest, errors.New("empty body")
	}
	if err := json.Unmarshal(body, &evt); err != nil {
		return evt, http.StatusBadRequest, errors.New("invalid JSON")
	}
	evt.Normalize()
	if err := evt.Validate(); err != nil {
		return evt, http.StatusBadRequest, err
	}
	return evt, http.StatusOK, nil
}

func (s *Server) reject(w http.ResponseWriter, status int, msg string) {
	s.rejected.Add(1)
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
