package geo

import (
	"context"
	"errors"
	"strconv"

	"github.com/presensia/presensia-client/internal/model"
)

// ErrUnavailable means the device position could not be resolved, either
// because no location source is configured or because resolution failed.
var ErrUnavailable = errors.New("location unavailable")

// Provider supplies the current device coordinates on demand. The position
// is fetched fresh per call and never cached: the server's geofence check
// depends on the freshness of the position at the moment of the action.
type Provider interface {
	Current(ctx context.Context) (model.Coordinates, error)
}

// Fixed is a provider pinned to one position. Used by the CLI (position from
// environment) and by tests.
type Fixed struct {
	Position model.Coordinates
}

func (f Fixed) Current(ctx context.Context) (model.Coordinates, error) {
	return f.Position, nil
}

// Denied is a provider whose resolution always fails, modeling a denied or
// missing location permission.
type Denied struct{}

func (Denied) Current(ctx context.Context) (model.Coordinates, error) {
	return model.Coordinates{}, ErrUnavailable
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (model.Coordinates, error)

func (f ProviderFunc) Current(ctx context.Context) (model.Coordinates, error) {
	return f(ctx)
}

// FromEnv builds a provider from raw latitude/longitude strings. Either
// value missing or unparsable yields a Denied provider rather than an error:
// an unconfigured position is the same as a denied permission.
func FromEnv(lat, lng string) Provider {
	if lat == "" || lng == "" {
		return Denied{}
	}
	latF, errLat := strconv.ParseFloat(lat, 64)
	lngF, errLng := strconv.ParseFloat(lng, 64)
	if errLat != nil || errLng != nil {
		return Denied{}
	}
	return Fixed{Position: model.Coordinates{Latitude: latF, Longitude: lngF}}
}
