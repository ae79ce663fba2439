package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/cohort"
	"github.com/aretw0/cohort/internal/logging"
	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/model"
	"github.com/aretw0/cohort/pkg/observability"
	"github.com/aretw0/cohort/pkg/psa"
	"github.com/aretw0/cohort/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request limits. Body size bounds the upload; cycles and iterations bound the work.
const (
	DefaultMaxBodyBytes  = 4 << 20
	DefaultMaxCycles     = 10000
	DefaultMaxIterations = 10000
)

var (
	errTooManyCycles     = errors.New("too many cycles")
	errTooManyIterations = errors.New("too many iterations")
)

// Server serves the simulation API.
type Server struct {
	Runner   *runner.Runner
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger

	MaxBodyBytes  int64
	MaxCycles     int
	MaxIterations int
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics counts requests on m and serves gatherer on /metrics.
func WithMetrics(m *observability.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Metrics = m
		s.Gatherer = gatherer
	}
}

// WithLogger sets the request logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// WithMaxCycles caps settings.cycles of a posted model. Non-positive values are ignored.
func WithMaxCycles(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.MaxCycles = n
		}
	}
}

// WithMaxIterations caps the iterations of one PSA request. Non-positive values are ignored.
func WithMaxIterations(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.MaxIterations = n
		}
	}
}

// NewHandler creates a new HTTP handler around r.
func NewHandler(r *runner.Runner, opts ...Option) http.Handler {
	s := &Server{
		Runner:       r,
		Gatherer:     prometheus.DefaultGatherer,
		Logger:       logging.NewNop(),
		MaxBodyBytes:  DefaultMaxBodyBytes,
		MaxCycles:     DefaultMaxCycles,
		MaxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(s)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(s.observe)

	router.Get("/healthz", s.GetHealth)
	router.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	router.Post("/validate", s.Validate)
	router.Post("/psa", s.PostPSA)
	router.Route("/runs", func(r chi.Router) {
		r.Post("/", s.PostRun)
		r.Get("/", s.ListRuns)
		r.Get("/{id}", s.GetRun)
		r.Delete("/{id}", s.DeleteRun)
	})

	return enableCORS(router)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// observe logs every request and counts it by route pattern and status code.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if s.Metrics != nil {
			s.Metrics.ObserveHTTP(route, status)
		}
		s.Logger.DebugContext(r.Context(), "http request",
			"method", r.Method, "route", route, "status", status, "duration", time.Since(start))
	})
}

// PostRun handles POST /runs. The body is a YAML or JSON model; ?seed= samples it.
func (s *Server) PostRun(w http.ResponseWriter, r *http.Request) {
	def, ok := s.readDefinition(w, r)
	if !ok {
		return
	}
	seed, err := optionalSeed(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rec, err := s.Runner.Run(r.Context(), def, seed)
	if err != nil {
		s.writeRunError(w, r, err)
		return
	}
	w.Header().Set("Location", "/runs/"+rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	if s.Runner.Store == nil {
		writeJSON(w, http.StatusOK, map[string][]string{"runs": {}})
		return
	}
	ids, err := s.Runner.Store.List(r.Context())
	if err != nil {
		s.Logger.ErrorContext(r.Context(), "list runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"runs": ids})
}

// GetRun handles GET /runs/{id}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Runner.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteRun handles DELETE /runs/{id}.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.Runner.Get(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if err := s.Runner.Store.Delete(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Validate handles POST /validate: the model is built and verified but not run.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	def, ok := s.readDefinition(w, r)
	if !ok {
		return
	}
	if _, err := s.Runner.Build(def, nil); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  true,
		"model":  def.Name,
		"states": def.States(),
	})
}

// PostPSA handles POST /psa?iterations=&seed=&concurrency=.
func (s *Server) PostPSA(w http.ResponseWriter, r *http.Request) {
	def, ok := s.readDefinition(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	iterations, err := intParam(q.Get("iterations"), 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("iterations: %w", err))
		return
	}
	if iterations > s.MaxIterations {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %d exceeds %d", errTooManyIterations, iterations, s.MaxIterations))
		return
	}
	concurrency, err := intParam(q.Get("concurrency"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("concurrency: %w", err))
		return
	}
	seed, err := optionalSeed(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var base uint64
	if seed != nil {
		base = *seed
	}

	summary, err := s.Runner.PSA(r.Context(), def, iterations, concurrency, base)
	if err != nil {
		if errors.Is(err, psa.ErrNoIterations) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.writeRunError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": strings.TrimSpace(cohort.Version),
	})
}

// -- Helpers --

func (s *Server) readDefinition(w http.ResponseWriter, r *http.Request) (*model.Definition, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.MaxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return nil, false
	}
	def, err := model.Parse(data, model.FormatFromContentType(r.Header.Get("Content-Type")))
	if err != nil {
		s.Logger.WarnContext(r.Context(), "invalid model", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	if def.Settings.Cycles > s.MaxCycles {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("%w: %d exceeds %d", errTooManyCycles, def.Settings.Cycles, s.MaxCycles))
		return nil, false
	}
	return def, true
}

// writeRunError maps build failures to 422 and anything else to 500.
func (s *Server) writeRunError(w http.ResponseWriter, r *http.Request, err error) {
	if isModelError(err) {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.Logger.ErrorContext(r.Context(), "run failed", "error", err)
	writeError(w, http.StatusInternalServerError, err)
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.Logger.ErrorContext(r.Context(), "store failed", "error", err)
	writeError(w, http.StatusInternalServerError, err)
}

var modelErrors = []error{
	domain.ErrInvalidChild,
	domain.ErrProbabilitySum,
	domain.ErrTransitionTarget,
	domain.ErrComplementUnbound,
	domain.ErrUnknownNode,
	domain.ErrDuplicateName,
	domain.ErrMultipleComplements,
	domain.ErrCycleOutOfRange,
	domain.ErrInvalidDistribution,
	domain.ErrInvalidCountMethod,
	domain.ErrInvalidSettings,
	model.ErrUnknownReference,
	model.ErrInvalidDefinition,
}

func isModelError(err error) bool {
	for _, target := range modelErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func optionalSeed(r *http.Request) (*uint64, error) {
	raw := r.URL.Query().Get("seed")
	if raw == "" {
		return nil, nil
	}
	seed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return &seed, nil
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
