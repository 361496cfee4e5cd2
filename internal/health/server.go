package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/speedwagon-io/gauge/internal/lib/logger/sl"
	"github.com/speedwagon-io/gauge/internal/model"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

type ComponentHealth struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status     Status            `json:"status"`
	Components []ComponentHealth `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

type HealthChecker interface {
	Name() string
	Check(ctx context.Context) (Status, string)
}

type Server struct {
	log      *slog.Logger
	address  string
	server   *http.Server
	router   chi.Router
	checkers []HealthChecker
	ready    func() bool
	mu       sync.RWMutex
}

func NewServer(log *slog.Logger, address string) *Server {
	s := &Server{
		log:      log,
		address:  address,
		checkers: make([]HealthChecker, 0),
	}

	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/live", s.handleLive)
	s.router = r

	return s
}

// Mount attaches an additional handler, e.g. the gauge API, before Start.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) AddChecker(checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers = append(s.checkers, checker)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.log.Info("starting http server", slog.String("address", s.address))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server error", sl.Err(err))
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checkers := make([]HealthChecker, len(s.checkers))
	copy(checkers, s.checkers)
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:     StatusHealthy,
		Components: make([]ComponentHealth, 0, len(checkers)),
		Timestamp:  time.Now().UTC(),
	}

	for _, checker := range checkers {
		status, message := checker.Check(ctx)
		response.Components = append(response.Components, ComponentHealth{
			Name:    checker.Name(),
			Status:  status,
			Message: message,
		})

		if status == StatusUnhealthy {
			response.Status = StatusUnhealthy
		} else if status == StatusDegraded && response.Status == StatusHealthy {
			response.Status = StatusDegraded
		}
	}

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// SetReadyFunc makes /ready answer 503 until ready reports true.
func (s *Server) SetReadyFunc(ready func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	if ready != nil && !ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("NOT READY"))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type SenderHealthChecker struct {
	healthFunc func(ctx context.Context) error
}

func NewSenderHealthChecker(healthFunc func(ctx context.Context) error) *SenderHealthChecker {
	return &SenderHealthChecker{healthFunc: healthFunc}
}

func (c *SenderHealthChecker) Name() string {
	return "sender"
}

func (c *SenderHealthChecker) Check(ctx context.Context) (Status, string) {
	if err := c.healthFunc(ctx); err != nil {
		return StatusDegraded, err.Error()
	}
	return StatusHealthy, ""
}

const DefaultBufferThreshold = 1000

type BufferHealthChecker struct {
	countFunc func(ctx context.Context) (int64, error)
	threshold int64
}

func NewBufferHealthChecker(countFunc func(ctx context.Context) (int64, error), threshold int64) *BufferHealthChecker {
	if threshold <= 0 {
		threshold = DefaultBufferThreshold
	}
	return &BufferHealthChecker{countFunc: countFunc, threshold: threshold}
}

func (c *BufferHealthChecker) Name() string {
	return "buffer"
}

func (c *BufferHealthChecker) Check(ctx context.Context) (Status, string) {
	count, err := c.countFunc(ctx)
	if err != nil {
		return StatusUnhealthy, err.Error()
	}

	if count > c.threshold {
		return StatusDegraded, fmt.Sprintf("%d envelopes waiting in buffer", count)
	}

	return StatusHealthy, ""
}

// ReadingsHealthChecker reports degraded when no target has produced readings
// within maxAge.
type ReadingsHealthChecker struct {
	latestFunc func() []*model.Envelope
	maxAge     time.Duration
	now        func() time.Time
}

func NewReadingsHealthChecker(latestFunc func() []*model.Envelope, maxAge time.Duration) *ReadingsHealthChecker {
	return &ReadingsHealthChecker{
		latestFunc: latestFunc,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

func (c *ReadingsHealthChecker) Name() string {
	return "readings"
}

func (c *ReadingsHealthChecker) Check(ctx context.Context) (Status, string) {
	latest := c.latestFunc()
	if len(latest) == 0 {
		return StatusDegraded, "no readings collected yet"
	}

	var newest time.Time
	for _, e := range latest {
		if e.Timestamp.After(newest) {
			newest = e.Timestamp
		}
	}

	if age := c.now().Sub(newest); age > c.maxAge {
		return StatusDegraded, fmt.Sprintf("last readings are %s old", age.Round(time.Second))
	}

	return StatusHealthy, ""
}
