// Package httpapi exposes the staffing service as a JSON REST API under
// /api/v1, plus /healthz and /metrics.
package httpapi

import (
	"clinicstaff/internal/adapters/exports"
	"clinicstaff/internal/auth"
	"clinicstaff/internal/core"
	"clinicstaff/internal/reports"
	"context"
	"errors"
	"expvar"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options wires the server dependencies. Service is required.
type Options struct {
	Service *core.Service
	// Reports defaults to Service; set it to a cached source to serve
	// reports from Redis.
	Reports reports.Source
	// Exports enables the /exports routes when set.
	Exports exports.Scheduler

	AuthEnabled bool
	Sessions    *auth.Sessions
	Hasher      auth.Hasher

	Logger     *zap.Logger
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	// Ready is probed by /healthz in addition to the store.
	Ready func(ctx context.Context) error
	// DebugVars mounts the expvar handler at /debug/vars.
	DebugVars bool
}

// Server is the HTTP handler of the API.
type Server struct {
	router   chi.Router
	svc      *core.Service
	reports  reports.Source
	exports  exports.Scheduler
	authn    auth.Authenticator
	authOn   bool
	logger   *zap.Logger
	metrics  *httpMetrics
	gatherer prometheus.Gatherer
	ready    func(ctx context.Context) error
	debug    bool
}

// New builds the router.
func New(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, errors.New("httpapi: service required")
	}
	if opts.Reports == nil {
		opts.Reports = opts.Service
	}
	if opts.Sessions == nil {
		opts.Sessions = auth.NewSessions(0, nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Registerer == nil || opts.Gatherer == nil {
		reg := prometheus.NewRegistry()
		opts.Registerer, opts.Gatherer = reg, reg
	}
	metrics, err := newHTTPMetrics(opts.Registerer)
	if err != nil {
		return nil, err
	}
	s := &Server{
		router:  chi.NewRouter(),
		svc:     opts.Service,
		reports: opts.Reports,
		exports: opts.Exports,
		authn: auth.Authenticator{
			Users:    opts.Service,
			Sessions: opts.Sessions,
			Hasher:   opts.Hasher,
		},
		authOn:   opts.AuthEnabled,
		logger:   opts.Logger,
		metrics:  metrics,
		gatherer: opts.Gatherer,
		ready:    opts.Ready,
		debug:    opts.DebugVars,
	}
	s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	if s.debug {
		r.Method(http.MethodGet, "/debug/vars", expvar.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/me", s.handleMe)

			r.Route("/specialties", func(r chi.Router) {
				r.With(s.require(permRead)).Get("/", s.listSpecialties)
				r.With(s.require(permWriteStaff)).Post("/", s.createSpecialty)
				r.With(s.require(permRead)).Get("/{id}", s.getSpecialty)
				r.With(s.require(permWriteStaff)).Put("/{id}", s.updateSpecialty)
				r.With(s.require(permWriteStaff)).Delete("/{id}", s.deleteSpecialty)
			})
			r.Route("/doctors", func(r chi.Router) {
				r.With(s.require(permRead)).Get("/", s.listDoctors)
				r.With(s.require(permWriteStaff)).Post("/", s.createDoctor)
				r.With(s.require(permRead)).Get("/{id}", s.getDoctor)
				r.With(s.require(permWriteStaff)).Put("/{id}", s.updateDoctor)
				r.With(s.require(permWriteStaff)).Delete("/{id}", s.deleteDoctor)
				r.With(s.require(permWriteStaff)).Put("/{id}/primary-specialty", s.setPrimarySpecialty)
			})
			r.Route("/shifts", func(r chi.Router) {
				r.With(s.require(permRead)).Get("/", s.listShifts)
				r.With(s.require(permWriteSchedule)).Post("/", s.createShift)
				r.With(s.require(permRead)).Get("/{id}", s.getShift)
				r.With(s.require(permWriteSchedule)).Put("/{id}", s.updateShift)
				r.With(s.require(permWriteSchedule)).Delete("/{id}", s.deleteShift)
				r.With(s.require(permWriteSchedule)).Post("/{id}/cancel", s.cancelShift)
				r.With(s.require(permWriteSchedule)).Post("/{id}/complete", s.completeShift)
			})
			r.Route("/encounters", func(r chi.Router) {
				r.With(s.require(permRead)).Get("/", s.listEncounters)
				r.With(s.require(permWriteEncounters)).Post("/", s.createEncounter)
				r.With(s.require(permRead)).Get("/{id}", s.getEncounter)
				r.With(s.require(permWriteEncounters)).Put("/{id}", s.updateEncounter)
				r.With(s.require(permWriteEncounters)).Delete("/{id}", s.deleteEncounter)
			})
			r.Route("/users", func(r chi.Router) {
				r.Use(s.require(permManageUsers))
				r.Get("/", s.listUsers)
				r.Post("/", s.createUser)
				r.Get("/{id}", s.getUser)
				r.Put("/{id}", s.updateUser)
				r.Delete("/{id}", s.deleteUser)
			})
			r.Route("/reports", func(r chi.Router) {
				r.Use(s.require(permReports))
				r.Get("/productivity", s.productivityReport)
				r.Get("/summary", s.summaryReport)
			})
			if s.exports != nil {
				r.Route("/exports", func(r chi.Router) {
					r.Use(s.require(permReports))
					r.Get("/", s.listExports)
					r.Post("/", s.createExport)
					r.Get("/{id}", s.getExport)
					r.Get("/{id}/download/{format}", s.downloadExport)
				})
			}
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.View(r.Context(), func(core.TransactionView) error { return nil }); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable: "+err.Error())
		return
	}
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
