// internal/models/user.go
package models

import "time"

type UserRole string
type UserStatus string

const (
	RoleOwner    UserRole = "OWNER"
	RoleAdmin    UserRole = "ADMIN"
	RoleEmployee UserRole = "EMPLOYEE"

	StatusPending  UserStatus = "PENDING"
	StatusActive   UserStatus = "ACTIVE"
	StatusRejected UserStatus = "REJECTED"
	StatusInactive UserStatus = "INACTIVE"
)

type User struct {
	ID       uint       `gorm:"primaryKey" json:"id"`
	Role     UserRole   `gorm:"type:varchar(20);not null" json:"role"`
	Status   UserStatus `gorm:"type:varchar(20);not null" json:"status"`
	FullName string     `gorm:"not null" json:"full_name"`
	Email    string     `gorm:"uniqueIndex;not null" json:"email"`
	Phone    string     `json:"phone"`

	CreatedAt time.Time `json:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleOwner
}
