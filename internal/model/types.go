package model

// Core domain types shared by the planner, store and API layers.

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a point the fleet has to visit. Immutable once created.
type Location struct {
	ID          int64  `json:"id"`
	LatLng      LatLng `json:"latLng"`
	Description string `json:"description,omitempty"`
}

type Route struct {
	Depot  Location   `json:"depot"`
	Visits []Location `json:"visits"`
}

// RouteSnapshot is one consistent rendering of the plan, produced from a
// single solution and never updated in place.
type RouteSnapshot struct {
	Depot    *Location `json:"depot,omitempty"`
	Routes   []Route   `json:"routes"`
	Distance string    `json:"distance"`
}

// LocationInput is the create-location request body.
type LocationInput struct {
	Lat         float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng         float64 `json:"lng" validate:"gte=-180,lte=180"`
	Description string  `json:"description,omitempty" validate:"max=255"`
}

func (in LocationInput) LatLng() LatLng { return LatLng{Lat: in.Lat, Lng: in.Lng} }
