package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceIdenticalPoints(t *testing.T) {
	p := Point{Lat: 19.0760, Lng: 72.8777}
	assert.Equal(t, 0.0, Distance(p, p))
}

func TestDistanceSymmetry(t *testing.T) {
	a := Point{Lat: 19.0760, Lng: 72.8777}
	b := Point{Lat: 18.5204, Lng: 73.8567}
	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
}

func TestDistanceKnownValue(t *testing.T) {
	// Mumbai <-> Pune, roughly 119-120 km on a spherical earth.
	a := Point{Lat: 19.0760, Lng: 72.8777}
	b := Point{Lat: 18.5204, Lng: 73.8567}
	d := Distance(a, b)
	assert.InDelta(t, 119500, d, 2500)
}

func TestDistanceShortRange(t *testing.T) {
	// ~0.00135 degrees of latitude is ~150 m.
	center := Point{Lat: 19.0760, Lng: 72.8777}
	student := Point{Lat: 19.0760 + 150.0/111194.9, Lng: 72.8777}
	d := Distance(center, student)
	assert.InDelta(t, 150, d, 1)
}

func TestDistanceAntipodalNoNaN(t *testing.T) {
	a := Point{Lat: 0, Lng: 0}
	b := Point{Lat: 0, Lng: 180}
	d := Distance(a, b)
	assert.False(t, math.IsNaN(d))
	assert.InDelta(t, math.Pi*earthRadiusM, d, 1000)
}

func TestWithinRadiusMonotonic(t *testing.T) {
	center := Point{Lat: 19.0760, Lng: 72.8777}
	near := Point{Lat: 19.0760 + 50.0/111194.9, Lng: 72.8777}
	far := Point{Lat: 19.0760 + 150.0/111194.9, Lng: 72.8777}

	assert.True(t, WithinRadius(near, center, 100))
	assert.False(t, WithinRadius(far, center, 100))

	// Shrinking the radius below the nearer distance flips it too.
	assert.False(t, WithinRadius(near, center, 25))
}
