package geo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presensia/presensia-client/internal/model"
)

func TestFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng string
		want     model.Coordinates
		denied   bool
	}{
		{"both set", "-8.65", "115.21", model.Coordinates{Latitude: -8.65, Longitude: 115.21}, false},
		{"missing lat", "", "115.21", model.Coordinates{}, true},
		{"missing lng", "-8.65", "", model.Coordinates{}, true},
		{"both missing", "", "", model.Coordinates{}, true},
		{"unparsable lat", "north-ish", "115.21", model.Coordinates{}, true},
		{"unparsable lng", "-8.65", "west", model.Coordinates{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := FromEnv(tt.lat, tt.lng)
			pos, err := provider.Current(context.Background())
			if tt.denied {
				assert.ErrorIs(t, err, ErrUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, pos)
		})
	}
}

func TestDenied(t *testing.T) {
	_, err := Denied{}.Current(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}
