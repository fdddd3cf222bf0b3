package attendance

import (
	"errors"
	"math"
	"testing"

	"github.com/JudeDesigns/attendance-sub000/internal/models"
	"github.com/JudeDesigns/attendance-sub000/internal/testutil"
)

func TestHaversineDistance(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tolerance              float64
	}{
		{"same point", -6.2, 106.8, -6.2, 106.8, 0, 0.001},
		{"one degree of latitude", 0, 0, 1, 0, 111195, 1},
		{"one degree of longitude at the equator", 0, 0, 0, 1, 111195, 1},
		{"symmetric", 1, 0, 0, 0, 111195, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineDistance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Fatalf("expected %.1fm, got %.1fm", tt.want, got)
			}
		})
	}
}

func TestWithinGeofence(t *testing.T) {
	office := &models.Location{Name: "Office", Latitude: -6.2, Longitude: 106.8, RequireGPS: true}
	open := &models.Location{Name: "Field", Latitude: -6.2, Longitude: 106.8}

	tests := []struct {
		name     string
		lat, lon *float64
		loc      *models.Location
		want     bool
	}{
		{"no location", nil, nil, nil, true},
		{"gps not required", nil, nil, open, true},
		{"gps not required far away", testutil.Float(10), testutil.Float(10), open, true},
		{"missing coordinates", nil, testutil.Float(106.8), office, false},
		{"inside default radius", testutil.Float(-6.2004), testutil.Float(106.8), office, true},
		{"outside default radius", testutil.Float(-6.202), testutil.Float(106.8), office, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinGeofence(tt.lat, tt.lon, tt.loc); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCheckGeofenceReportsDistance(t *testing.T) {
	office := &models.Location{Name: "Office", Latitude: 0, Longitude: 0, RadiusMeters: 500, RequireGPS: true}

	err := checkGeofence(testutil.Float(0.01), testutil.Float(0), office)
	var oor *OutOfRangeError
	if !errors.As(err, &oor) {
		t.Fatalf("expected OutOfRangeError, got %v", err)
	}
	if oor.Radius != 500 || math.Abs(oor.Distance-1112) > 2 || oor.Missing {
		t.Fatalf("unexpected detail: %+v", oor)
	}

	if err := checkGeofence(testutil.Float(0.004), testutil.Float(0), office); err != nil {
		t.Fatalf("445m should be inside a 500m radius: %v", err)
	}
}

func TestGeofenceRadiusBoundary(t *testing.T) {
	loc := &models.Location{Name: "Gate", RequireGPS: true}
	metre := 1 / 111195.0

	if !WithinGeofence(testutil.Float(0), testutil.Float(0), loc) {
		t.Fatalf("distance zero must pass")
	}
	if !WithinGeofence(testutil.Float(99.5*metre), testutil.Float(0), loc) {
		t.Fatalf("just inside the radius must pass")
	}
	if WithinGeofence(testutil.Float(100.5*metre), testutil.Float(0), loc) {
		t.Fatalf("just past the radius must fail")
	}
}
