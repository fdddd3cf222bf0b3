// Package testutil provides database setup and fixture builders for tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JudeDesigns/attendance-sub000/internal/models"
	"github.com/JudeDesigns/attendance-sub000/internal/storage"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// NewDB opens a migrated in-memory SQLite database that is closed with the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := storage.OpenSQLite(dsn, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				t.Logf("db close failed: %v", err)
			}
		}
	})
	return db
}

// CreateUser inserts an active user with the given role.
func CreateUser(t testing.TB, db *gorm.DB, name string, role models.UserRole) *models.User {
	t.Helper()
	u := &models.User{
		Role:     role,
		Status:   models.StatusActive,
		FullName: name,
		Email:    fmt.Sprintf("%s-%d@example.com", name, dbSeq.Add(1)),
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func CreateEmployee(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()
	return CreateUser(t, db, name, models.RoleEmployee)
}

func CreateAdmin(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()
	return CreateUser(t, db, name, models.RoleAdmin)
}

// CreateLocation inserts a location centred on lat/lon.
func CreateLocation(t testing.TB, db *gorm.DB, name string, lat, lon, radius float64, requireGPS bool) *models.Location {
	t.Helper()
	l := &models.Location{
		Name:         name,
		Latitude:     lat,
		Longitude:    lon,
		RadiusMeters: radius,
		RequireGPS:   requireGPS,
	}
	if err := db.Create(l).Error; err != nil {
		t.Fatalf("create location: %v", err)
	}
	return l
}

// CreateShift inserts a published shift.
func CreateShift(t testing.TB, db *gorm.DB, employeeID uint, start, end time.Time) *models.ScheduledShift {
	t.Helper()
	sh := &models.ScheduledShift{
		EmployeeID: employeeID,
		StartAt:    start.UTC(),
		EndAt:      end.UTC(),
		Published:  true,
	}
	if err := db.Create(sh).Error; err != nil {
		t.Fatalf("create shift: %v", err)
	}
	return sh
}

// OpenSession inserts an OPEN session directly, bypassing the service.
func OpenSession(t testing.TB, db *gorm.DB, employeeID uint, clockIn time.Time) *models.WorkSession {
	t.Helper()
	s := &models.WorkSession{EmployeeID: employeeID, ClockIn: clockIn}
	if err := storage.NewRepository(db).CreateWorkSession(context.Background(), s); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Uint returns a pointer to v.
func Uint(v uint) *uint { return &v }

// Clock is a settable time source.
type Clock struct {
	t atomic.Int64
}

func NewClock(t time.Time) *Clock {
	c := &Clock{}
	c.Set(t)
	return c
}

func (c *Clock) Now() time.Time          { return time.Unix(0, c.t.Load()).UTC() }
func (c *Clock) Set(t time.Time)         { c.t.Store(t.UnixNano()) }
func (c *Clock) Advance(d time.Duration) { c.t.Add(int64(d)) }
