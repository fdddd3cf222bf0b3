// internal/attendance/geofence.go
package attendance

import (
	"math"

	"github.com/JudeDesigns/attendance-sub000/internal/models"
)

const earthRadiusMeters = 6371000.0

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

// HaversineDistance returns the great-circle distance in metres between two points.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1, phi2 := toRadians(lat1), toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lon2 - lon1)

	a := math.Pow(math.Sin(dPhi/2), 2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Pow(math.Sin(dLambda/2), 2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}

// WithinGeofence reports whether the coordinates fall inside the location's radius.
// Locations without GPS verification accept anything.
func WithinGeofence(lat, lon *float64, loc *models.Location) bool {
	return checkGeofence(lat, lon, loc) == nil
}

func checkGeofence(lat, lon *float64, loc *models.Location) error {
	if loc == nil || !loc.RequireGPS {
		return nil
	}
	if lat == nil || lon == nil {
		return &OutOfRangeError{Location: loc.Name, Radius: loc.Radius(), Missing: true}
	}
	d := HaversineDistance(*lat, *lon, loc.Latitude, loc.Longitude)
	if d > loc.Radius() {
		return &OutOfRangeError{Location: loc.Name, Distance: d, Radius: loc.Radius()}
	}
	return nil
}
