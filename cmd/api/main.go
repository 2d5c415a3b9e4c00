package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	redis "github.com/redis/go-redis/v9"

	"liveroute/internal/api"
	"liveroute/internal/config"
	"liveroute/internal/distance"
	"liveroute/internal/metrics"
	"liveroute/internal/opt"
	"liveroute/internal/planner"
	"liveroute/internal/service"
	"liveroute/internal/store"
	"liveroute/internal/webhooks"
)

func main() {
	configFile := flag.String("config", "", "optional config file (yaml, json or env)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	metrics.RegisterDefault()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.Close()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	// Broker selection
	var broker api.EventBroker = api.NewBroker()
	var cache distance.Cache = distance.NewMemoryCache()
	if rdb != nil {
		broker = api.NewRedisBroker(rdb)
		cache = distance.NewRedisCache(rdb, cfg.DistanceTTL)
	}
	routes := api.NewRoutePublisher(broker)

	matrix := distance.NewMatrix(distance.Cached{Provider: distance.NewCalculator(cfg.SpeedKPH), Cache: cache})
	solverCfg := opt.DefaultConfig()
	solverCfg.Seed = cfg.SolverSeed
	solverCfg.IdleIterations = cfg.SolverIdleIterations
	solver := opt.NewSolver(solverCfg)
	optimizer := planner.NewRouteOptimizer(solver, routes, planner.GoExecutor{}, planner.Fleet(cfg.VehicleCount, cfg.VehicleCapacity))
	svc := service.NewLocationService(st, matrix, optimizer)

	if n, err := svc.Reload(ctx); err != nil {
		log.Fatalf("reload locations: %v", err)
	} else if n == 0 && cfg.DemoAutoload != "" {
		if _, err := svc.LoadDemo(ctx, cfg.DemoAutoload); err != nil {
			log.Printf("demo autoload %s: %v", cfg.DemoAutoload, err)
		}
	}

	// Start webhook worker
	if cfg.WebhookURL != "" {
		q := webhooks.NewQueue(0)
		hooks := webhooks.NewPublisher(q)
		worker := webhooks.NewWorker(q, cfg.WebhookURL, cfg.WebhookSecret, cfg.WebhookMaxAttempts)
		worker.Start()
		defer close(worker.Stop)
		events := broker.Subscribe(api.TopicRoute)
		defer broker.Unsubscribe(api.TopicRoute, events)
		go func() {
			for evt := range events {
				hooks.Emit(evt.ID, evt.Type, evt.Data)
			}
		}()
	}

	srvDeps := api.NewServer(cfg, api.Deps{
		Locations: svc,
		Routes:    routes,
		Broker:    broker,
		Store:     st,
		Planner:   optimizer,
		Stats:     solver.Stats,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srvDeps.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("API listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
	log.Printf("API stopped")
}

// openStore uses Postgres when DATABASE_URL is set, SQLite when SQLITE_PATH
// is set, and memory otherwise.
func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch {
	case cfg.DatabaseURL != "":
		return store.NewPostgres(ctx, cfg.DatabaseURL)
	case cfg.SQLitePath != "":
		return store.NewSQLite(ctx, cfg.SQLitePath)
	default:
		return store.NewMemory(), nil
	}
}
