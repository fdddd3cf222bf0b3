// internal/storage/repository.go
package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/JudeDesigns/attendance-sub000/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the gorm-backed store for sessions, breaks and the read-mostly reference data.
type Repository struct {
	DB *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository { return &Repository{DB: db} }

// Closure carries the clock-out fields written when a session is closed.
type Closure struct {
	ClockOut   time.Time
	LocationID *uint
	Latitude   *float64
	Longitude  *float64
	Method     string
	Note       string
	// Break, when set, is ended in the same transaction as the session.
	Break *BreakClosure
}

// BreakClosure ends a running break.
type BreakClosure struct {
	ID        uuid.UUID
	EndedAt   time.Time
	Compliant bool
}

// errSessionNotOpen rolls back a closure whose session was no longer open.
var errSessionNotOpen = errors.New("session not open")

func appendNote(note string) any {
	return gorm.Expr("COALESCE(notes, '') || ?", note)
}

// --- Work sessions ---

// CreateWorkSession inserts an OPEN session unless the employee already has one.
func (r *Repository) CreateWorkSession(ctx context.Context, s *models.WorkSession) error {
	s.State = models.SessionOpen
	s.ClockIn = s.ClockIn.UTC()
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		if err := tx.Model(&models.WorkSession{}).
			Where("employee_id = ? AND state = ?", s.EmployeeID, models.SessionOpen).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return ErrConflict
		}
		return tx.Create(s).Error
	})
	return wrapErr("create", "work session", "", err)
}

func (r *Repository) FindOpenSession(ctx context.Context, employeeID uint) (*models.WorkSession, error) {
	var s models.WorkSession
	err := r.DB.WithContext(ctx).
		Where("employee_id = ? AND state = ?", employeeID, models.SessionOpen).
		First(&s).Error
	if err != nil {
		return nil, wrapErr("find open", "work session", "employee "+strconv.FormatUint(uint64(employeeID), 10), err)
	}
	return &s, nil
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.WorkSession, error) {
	var s models.WorkSession
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, wrapErr("get", "work session", id.String(), err)
	}
	return &s, nil
}

func (r *Repository) ListOpenSessions(ctx context.Context) ([]models.WorkSession, error) {
	var rows []models.WorkSession
	if err := r.DB.WithContext(ctx).
		Where("state = ?", models.SessionOpen).
		Order("clock_in asc").
		Find(&rows).Error; err != nil {
		return nil, wrapErr("list open", "work session", "", err)
	}
	return rows, nil
}

// ListSessionsBetween returns an employee's sessions clocked in within [from, to), breaks preloaded.
func (r *Repository) ListSessionsBetween(ctx context.Context, employeeID uint, from, to time.Time) ([]models.WorkSession, error) {
	var rows []models.WorkSession
	err := r.DB.WithContext(ctx).
		Preload("Breaks", func(db *gorm.DB) *gorm.DB { return db.Order("started_at asc") }).
		Where("employee_id = ? AND clock_in >= ? AND clock_in < ?", employeeID, from.UTC(), to.UTC()).
		Order("clock_in asc").
		Find(&rows).Error
	if err != nil {
		return nil, wrapErr("list", "work session", "", err)
	}
	return rows, nil
}

// CloseSession transitions an OPEN session to CLOSED, ending c.Break in the same transaction.
// It reports false when the session was no longer open, which callers treat as a no-op; nothing
// is written in that case.
func (r *Repository) CloseSession(ctx context.Context, id uuid.UUID, c Closure) (bool, error) {
	updates := map[string]any{
		"state":                 models.SessionClosed,
		"clock_out":             c.ClockOut.UTC(),
		"clock_out_location_id": c.LocationID,
		"clock_out_latitude":    c.Latitude,
		"clock_out_longitude":   c.Longitude,
		"clock_out_method":      c.Method,
	}
	if c.Note != "" {
		updates["notes"] = appendNote(c.Note)
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if c.Break != nil {
			if err := tx.Model(&models.BreakSession{}).
				Where("id = ? AND work_session_id = ? AND ended_at IS NULL", c.Break.ID, id).
				Updates(map[string]any{"ended_at": c.Break.EndedAt.UTC(), "compliant": c.Break.Compliant}).Error; err != nil {
				return err
			}
		}
		res := tx.Model(&models.WorkSession{}).
			Where("id = ? AND state = ?", id, models.SessionOpen).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errSessionNotOpen
		}
		return nil
	})
	if errors.Is(err, errSessionNotOpen) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr("close", "work session", id.String(), err)
	}
	return true, nil
}

// RecordReminder stamps the reminder bookkeeping on an OPEN session.
func (r *Repository) RecordReminder(ctx context.Context, id uuid.UUID, at time.Time, note string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.WorkSession{}).
		Where("id = ? AND state = ?", id, models.SessionOpen).
		Updates(map[string]any{
			"last_reminder_at": at.UTC(),
			"reminder_count":   gorm.Expr("reminder_count + 1"),
			"notes":            appendNote(note),
		})
	if res.Error != nil {
		return false, wrapErr("record reminder", "work session", id.String(), res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AppendNote adds a line to an OPEN session's notes.
func (r *Repository) AppendNote(ctx context.Context, id uuid.UUID, note string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.WorkSession{}).
		Where("id = ? AND state = ?", id, models.SessionOpen).
		Update("notes", appendNote(note))
	if res.Error != nil {
		return false, wrapErr("append note", "work session", id.String(), res.Error)
	}
	return res.RowsAffected > 0, nil
}

// --- Breaks ---

// CreateBreak inserts a break for an OPEN session. An open break is rejected with ErrConflict
// when another break on the session is still running; a missing or closed session yields
// ErrNotFound.
func (r *Repository) CreateBreak(ctx context.Context, b *models.BreakSession) error {
	b.StartedAt = b.StartedAt.UTC()
	if b.EndedAt != nil {
		end := b.EndedAt.UTC()
		b.EndedAt = &end
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		if err := tx.Model(&models.WorkSession{}).
			Where("id = ? AND state = ?", b.WorkSessionID, models.SessionOpen).
			Count(&open).Error; err != nil {
			return err
		}
		if open == 0 {
			return ErrNotFound
		}
		if b.EndedAt == nil {
			var running int64
			if err := tx.Model(&models.BreakSession{}).
				Where("work_session_id = ? AND ended_at IS NULL", b.WorkSessionID).
				Count(&running).Error; err != nil {
				return err
			}
			if running > 0 {
				return ErrConflict
			}
		}
		return tx.Create(b).Error
	})
	return wrapErr("create", "break session", b.WorkSessionID.String(), err)
}

func (r *Repository) FindOpenBreak(ctx context.Context, sessionID uuid.UUID) (*models.BreakSession, error) {
	var b models.BreakSession
	err := r.DB.WithContext(ctx).
		Where("work_session_id = ? AND ended_at IS NULL", sessionID).
		First(&b).Error
	if err != nil {
		return nil, wrapErr("find open", "break session", sessionID.String(), err)
	}
	return &b, nil
}

// EndBreak closes a running break. It reports false when the break had already ended.
func (r *Repository) EndBreak(ctx context.Context, id uuid.UUID, endedAt time.Time, compliant bool) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.BreakSession{}).
		Where("id = ? AND ended_at IS NULL", id).
		Updates(map[string]any{"ended_at": endedAt.UTC(), "compliant": compliant})
	if res.Error != nil {
		return false, wrapErr("end", "break session", id.String(), res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) ListBreaks(ctx context.Context, sessionID uuid.UUID) ([]models.BreakSession, error) {
	var rows []models.BreakSession
	if err := r.DB.WithContext(ctx).
		Where("work_session_id = ?", sessionID).
		Order("started_at asc").
		Find(&rows).Error; err != nil {
		return nil, wrapErr("list", "break session", sessionID.String(), err)
	}
	return rows, nil
}

// --- Reference data ---

func (r *Repository) GetLocation(ctx context.Context, id uint) (*models.Location, error) {
	var l models.Location
	if err := r.DB.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, wrapErr("get", "location", strconv.FormatUint(uint64(id), 10), err)
	}
	return &l, nil
}

// FindShifts returns published shifts for the employee starting within [from, to).
func (r *Repository) FindShifts(ctx context.Context, employeeID uint, from, to time.Time) ([]models.ScheduledShift, error) {
	var rows []models.ScheduledShift
	err := r.DB.WithContext(ctx).
		Where("employee_id = ? AND published = ? AND start_at >= ? AND start_at < ?", employeeID, true, from.UTC(), to.UTC()).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, wrapErr("find", "scheduled shift", "", err)
	}
	return rows, nil
}

func (r *Repository) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, wrapErr("get", "user", strconv.FormatUint(uint64(id), 10), err)
	}
	return &u, nil
}

// ListAdmins returns every active OWNER or ADMIN account.
func (r *Repository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var rows []models.User
	if err := r.DB.WithContext(ctx).
		Where("role IN ? AND status = ?", []models.UserRole{models.RoleOwner, models.RoleAdmin}, models.StatusActive).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, wrapErr("list admins", "user", "", err)
	}
	return rows, nil
}
