package distance

import (
	"context"
	"math"
	"time"

	"liveroute/internal/model"
)

const earthRadiusMeters = 6371000.0

// Provider answers the travel time between two coordinates.
type Provider interface {
	TravelTime(ctx context.Context, from, to model.LatLng) (time.Duration, error)
}

// Calculator estimates travel time from great-circle distance at a constant
// average speed.
type Calculator struct {
	SpeedKPH float64
}

func NewCalculator(speedKPH float64) Calculator {
	if speedKPH <= 0 {
		speedKPH = 50
	}
	return Calculator{SpeedKPH: speedKPH}
}

func (c Calculator) TravelTime(_ context.Context, from, to model.LatLng) (time.Duration, error) {
	meters := Meters(from, to)
	secs := meters / (c.SpeedKPH * 1000 / 3600)
	return time.Duration(math.Round(secs)) * time.Second, nil
}

// Meters is the haversine distance between two coordinates.
func Meters(a, b model.LatLng) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
