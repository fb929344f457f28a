package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	t.Run("zero distance for identical points", func(t *testing.T) {
		d := Distance(40.0, -74.0, 40.0, -74.0)
		assert.Equal(t, 0.0, d)
	})

	t.Run("one latitude degree is about 111km", func(t *testing.T) {
		d := Distance(40.0, -74.0, 41.0, -74.0)
		assert.InDelta(t, 111195, d, 500)
	})

	t.Run("known short distance", func(t *testing.T) {
		// 0.001 degrees of latitude is roughly 111 meters
		d := Distance(40.0, -74.0, 40.001, -74.0)
		assert.InDelta(t, 111.2, d, 1.0)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := Distance(40.7128, -74.0060, 51.5074, -0.1278)
		b := Distance(51.5074, -0.1278, 40.7128, -74.0060)
		assert.InDelta(t, a, b, 1e-6)
	})

	t.Run("new york to london", func(t *testing.T) {
		d := Distance(40.7128, -74.0060, 51.5074, -0.1278)
		assert.InDelta(t, 5570000, d, 10000)
	})
}

func TestPointDistanceTo(t *testing.T) {
	a := Point{Lat: 40.0, Lng: -74.0}
	b := Point{Lat: 40.001, Lng: -74.0}
	assert.InDelta(t, Distance(a.Lat, a.Lng, b.Lat, b.Lng), a.DistanceTo(b), 1e-9)
}
