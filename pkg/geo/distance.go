// Package geo holds the great-circle math used by dispatch and arrival verification.
// All internal distances are metres; convert at the API boundary with MetersToMiles.
package geo

import "math"

const (
	EarthRadiusMeters = 6371000.0
	metersPerMile     = 1609.344

	DefaultArrivalRadiusMeters = 150.0
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RadiusCheck is the outcome of a geofence test.
type RadiusCheck struct {
	IsWithin bool    `json:"isWithin"`
	Distance float64 `json:"distance"`
}

// DistanceMeters returns the haversine distance between two points.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

func Distance(a, b Coordinates) float64 {
	return DistanceMeters(a.Lat, a.Lng, b.Lat, b.Lng)
}

// WithinRadius reports whether the technician is within radiusMeters of the job.
// Distance is rounded to the nearest metre; the comparison uses the rounded value.
func WithinRadius(techLat, techLng, jobLat, jobLng, radiusMeters float64) RadiusCheck {
	d := math.Round(DistanceMeters(techLat, techLng, jobLat, jobLng))
	return RadiusCheck{IsWithin: d <= radiusMeters, Distance: d}
}

func MetersToMiles(m float64) float64 {
	return m / metersPerMile
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
