package planner

import (
	"fmt"
	"time"

	"liveroute/internal/model"
	"liveroute/internal/opt"
)

// Translate renders an engine solution as a RouteSnapshot: one route per
// vehicle, each built from that vehicle's ordered plan.
func Translate(sol opt.Solution) model.RouteSnapshot {
	if sol.Depot == nil {
		return emptySnapshot()
	}
	depot := *sol.Depot
	routes := make([]model.Route, len(sol.Vehicles))
	visited := 0
	for vi := range sol.Vehicles {
		visits := []model.Location{}
		if vi < len(sol.Plans) {
			for _, idx := range sol.Plans[vi].Order {
				if idx < 0 || idx >= len(sol.Visits) {
					continue
				}
				visits = append(visits, sol.Visits[idx])
			}
		}
		visited += len(visits)
		routes[vi] = model.Route{Depot: depot, Visits: visits}
	}
	travel := sol.TravelTime
	if visited == 0 {
		travel = 0
	}
	return model.RouteSnapshot{Depot: &depot, Routes: routes, Distance: FormatDuration(travel)}
}

// FormatDuration renders d as "1h 2m 3s". Negative durations render as zero.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}
