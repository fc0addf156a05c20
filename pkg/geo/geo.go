package geo

import "math"

// earthRadiusM is the mean earth radius used by the spherical approximation.
const earthRadiusM = 6371000.0

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Distance returns the great-circle distance between a and b in meters,
// computed with the haversine formula on a spherical earth.
func Distance(a, b Point) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	// Floating-point drift can push h a hair outside [0, 1], which would
	// feed sqrt(negative) into atan2 for antipodal points. Clamp first.
	if h < 0 {
		h = 0
	}
	if h > 1 {
		h = 1
	}

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c
}

// WithinRadius reports whether p lies within radiusM meters of center.
func WithinRadius(p, center Point, radiusM float64) bool {
	return Distance(p, center) <= radiusM
}
