package api

import (
	"sync"

	"github.com/google/uuid"

	"liveroute/internal/model"
)

const (
	TopicRoute       = "route"
	EventRouteChange = "route.changed"
)

// RouteUpdate is the payload of a route.changed event.
type RouteUpdate struct {
	Version int64               `json:"version"`
	Route   model.RouteSnapshot `json:"route"`
}

// RoutePublisher receives accepted snapshots from the planner, keeps the
// latest one for polling clients and broadcasts it to stream subscribers.
type RoutePublisher struct {
	broker EventBroker

	mu      sync.RWMutex
	latest  model.RouteSnapshot
	version int64
}

func NewRoutePublisher(b EventBroker) *RoutePublisher {
	return &RoutePublisher{
		broker: b,
		latest: model.RouteSnapshot{Routes: []model.Route{}, Distance: "0h 0m 0s"},
	}
}

func (p *RoutePublisher) PublishRoute(s model.RouteSnapshot) {
	p.mu.Lock()
	p.version++
	p.latest = s
	upd := RouteUpdate{Version: p.version, Route: s}
	p.mu.Unlock()
	if p.broker != nil {
		p.broker.Publish(TopicRoute, Event{ID: uuid.NewString(), Type: EventRouteChange, Data: upd})
	}
}

// Latest returns the most recent snapshot. Version 0 means nothing has been
// published yet.
func (p *RoutePublisher) Latest() RouteUpdate {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return RouteUpdate{Version: p.version, Route: p.latest}
}
