// internal/models/shift.go
package models

import "time"

// ScheduledShift is a planned shift published by the rostering side. It is read-only here.
type ScheduledShift struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EmployeeID uint      `gorm:"index:idx_shifts_employee_start,priority:1;not null" json:"employee_id"`
	StartAt    time.Time `gorm:"index:idx_shifts_employee_start,priority:2;not null" json:"start_at"`
	EndAt      time.Time `gorm:"not null" json:"end_at"`
	Published  bool      `gorm:"not null;default:false" json:"published"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *ScheduledShift) Duration() time.Duration { return s.EndAt.Sub(s.StartAt) }
