// internal/models/location.go
package models

import "time"

// DefaultGeofenceRadius applies when a location has no radius configured.
const DefaultGeofenceRadius = 100.0

type Location struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Address      string    `json:"address"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	RadiusMeters float64   `gorm:"not null;default:100" json:"radius_meters"`
	RequireGPS   bool      `gorm:"not null;default:false" json:"require_gps"`
	CreatedAt    time.Time `json:"created_at"`
}

// Radius returns the allowed radius in metres, falling back to the default when unset.
func (l *Location) Radius() float64 {
	if l.RadiusMeters <= 0 {
		return DefaultGeofenceRadius
	}
	return l.RadiusMeters
}
