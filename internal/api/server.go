package api

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"liveroute/internal/config"
	"liveroute/internal/metrics"
	"liveroute/internal/model"
	"liveroute/internal/opt"
	"liveroute/internal/planner"
)

// LocationService is the application layer behind the location endpoints.
type LocationService interface {
	CreateLocation(ctx context.Context, in model.LocationInput) (model.Location, error)
	RemoveLocation(ctx context.Context, id int64) error
	RemoveAll(ctx context.Context) error
	Locations(ctx context.Context) ([]model.Location, error)
	LoadDemo(ctx context.Context, name string) ([]model.Location, error)
}

// PlannerStatus reports the optimizer state for diagnostics.
type PlannerStatus interface {
	State() planner.SolverRunState
	LocationCount() int
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Locations LocationService
	Routes    *RoutePublisher
	Broker    EventBroker
	Store     Pinger
	Planner   PlannerStatus
	Stats     func() opt.Stats
}

type Server struct {
	Deps
	Config config.Config

	validate *validator.Validate
	limiter  *rate.Limiter
}

func NewServer(cfg config.Config, d Deps) *Server {
	if d.Broker == nil {
		d.Broker = NewBroker()
	}
	if d.Routes == nil {
		d.Routes = NewRoutePublisher(d.Broker)
	}
	s := &Server{Deps: d, Config: cfg, validate: validator.New()}
	if cfg.RateRPS > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateRPS), burst)
	}
	return s
}

// Handler returns the full HTTP surface with logging, metrics and rate
// limiting applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, instrument(pattern, h))
	}

	// Locations
	handle("/v1/locations", s.limit(s.LocationsHandler))
	handle("/v1/locations/", s.limit(s.LocationByIDHandler))

	// Route
	handle("/v1/route", s.RouteHandler)
	handle("/v1/route/stream", s.RouteStreamHandler)
	handle("/v1/route/ws", s.RouteWSHandler)

	// Demo data
	handle("/v1/demo", s.DemoIndexHandler)
	handle("/v1/demo/", s.limit(s.DemoLoadHandler))

	// Health, metrics, debug
	handle("/healthz", s.HealthHandler)
	handle("/readyz", s.ReadyHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	handle("/debug", s.DebugJSON)

	return logMiddleware(mux)
}
