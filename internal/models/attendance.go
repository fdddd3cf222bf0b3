package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionState string
type BreakType string

const (
	SessionOpen   SessionState = "OPEN"
	SessionClosed SessionState = "CLOSED"

	BreakShort    BreakType = "SHORT"
	BreakLunch    BreakType = "LUNCH"
	BreakPersonal BreakType = "PERSONAL"

	ClockOutManual    = "MANUAL"
	ClockOutAutoAdmin = "ADMIN_AUTO_CLOSE"
)

// OvertimeThreshold is the worked duration past which a session counts as overtime.
const OvertimeThreshold = 8 * time.Hour

type WorkSession struct {
	ID         uuid.UUID    `gorm:"type:char(36);primaryKey" json:"id"`
	EmployeeID uint         `gorm:"not null;index:idx_work_sessions_employee_state,priority:1" json:"employee_id"`
	State      SessionState `gorm:"type:varchar(10);not null;index:idx_work_sessions_employee_state,priority:2" json:"state"`

	ClockIn            time.Time  `gorm:"not null" json:"clock_in"`
	ClockOut           *time.Time `json:"clock_out,omitempty"`
	ClockInLocationID  *uint      `json:"clock_in_location_id,omitempty"`
	ClockOutLocationID *uint      `json:"clock_out_location_id,omitempty"`
	ClockInLatitude    *float64   `json:"clock_in_latitude,omitempty"`
	ClockInLongitude   *float64   `json:"clock_in_longitude,omitempty"`
	ClockOutLatitude   *float64   `json:"clock_out_latitude,omitempty"`
	ClockOutLongitude  *float64   `json:"clock_out_longitude,omitempty"`
	ClockOutMethod     string     `gorm:"type:varchar(30)" json:"clock_out_method,omitempty"`

	Notes          string     `gorm:"type:text" json:"notes"`
	LastReminderAt *time.Time `json:"last_reminder_at,omitempty"`
	ReminderCount  int        `gorm:"not null;default:0" json:"reminder_count"`

	Breaks    []BreakSession `gorm:"foreignKey:WorkSessionID;constraint:OnDelete:CASCADE" json:"breaks,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (s *WorkSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *WorkSession) IsOpen() bool { return s.State == SessionOpen }

// Duration is now-clock_in while open and clock_out-clock_in once closed.
func (s *WorkSession) Duration(now time.Time) time.Duration {
	end := now
	if s.ClockOut != nil {
		end = *s.ClockOut
	}
	d := end.Sub(s.ClockIn)
	if d < 0 {
		return 0
	}
	return d
}

// Hours returns worked hours rounded to two decimals.
func (s *WorkSession) Hours(now time.Time) float64 {
	minutes := s.Duration(now).Minutes()
	return math.Round(minutes/60*100) / 100
}

func (s *WorkSession) IsOvertime(now time.Time) bool {
	return s.Duration(now) > OvertimeThreshold
}

type BreakSession struct {
	ID            uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	WorkSessionID uuid.UUID  `gorm:"type:char(36);not null;index:idx_break_sessions_session_start,priority:1" json:"work_session_id"`
	Type          BreakType  `gorm:"type:varchar(10);not null" json:"type"`
	StartedAt     time.Time  `gorm:"not null;index:idx_break_sessions_session_start,priority:2" json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	Waived        bool       `gorm:"not null;default:false" json:"waived"`
	WaiverReason  string     `gorm:"type:text" json:"waiver_reason,omitempty"`
	Compliant     bool       `gorm:"not null;default:false" json:"compliant"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (b *BreakSession) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (b *BreakSession) IsOpen() bool { return b.EndedAt == nil }

func (b *BreakSession) Duration(now time.Time) time.Duration {
	end := now
	if b.EndedAt != nil {
		end = *b.EndedAt
	}
	return end.Sub(b.StartedAt)
}
