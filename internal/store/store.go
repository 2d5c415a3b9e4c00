package store

import (
	"context"
	"errors"

	"liveroute/internal/model"
)

// Store persists the locations the user has entered so a restart can replay
// them into the optimizer.
type Store interface {
	CreateLocation(ctx context.Context, in model.LocationInput) (model.Location, error)
	GetLocation(ctx context.Context, id int64) (model.Location, error)
	// ListLocations returns locations in creation order; the first is the depot.
	ListLocations(ctx context.Context) ([]model.Location, error)
	DeleteLocation(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var ErrNotFound = errors.New("not found")
