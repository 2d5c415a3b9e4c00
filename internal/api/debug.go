package api

import (
	"net/http"
	"time"

	"liveroute/internal/buildinfo"
)

// DebugJSON reports build info, effective configuration and solver progress.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":                   s.Config.Port,
			"VEHICLE_COUNT":          s.Config.VehicleCount,
			"VEHICLE_CAPACITY":       s.Config.VehicleCapacity,
			"SPEED_KPH":              s.Config.SpeedKPH,
			"SOLVER_IDLE_ITERATIONS": s.Config.SolverIdleIterations,
			"RATE_RPS":               s.Config.RateRPS,
			"RATE_BURST":             s.Config.RateBurst,
			"WEBHOOK_MAX_ATTEMPTS":   s.Config.WebhookMaxAttempts,
			"HAS_DATABASE_URL":       s.Config.DatabaseURL != "",
			"HAS_SQLITE_PATH":        s.Config.SQLitePath != "",
			"HAS_REDIS_URL":          s.Config.RedisURL != "",
			"HAS_WEBHOOK_URL":        s.Config.WebhookURL != "",
		},
		"route": map[string]any{"version": s.Routes.Latest().Version},
	}
	if s.Planner != nil {
		info["planner"] = map[string]any{
			"state":     s.Planner.State().String(),
			"locations": s.Planner.LocationCount(),
		}
	}
	if s.Stats != nil {
		st := s.Stats()
		info["solver"] = map[string]any{
			"iterations":     st.Iterations,
			"improvements":   st.Improvements,
			"acceptedWorse":  st.AcceptedWorse,
			"bestTravelTime": st.BestTravelTime.String(),
		}
	}
	writeJSON(w, http.StatusOK, info)
}
