package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of user roles.
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// ParseRole accepts any casing and returns an error for unknown roles.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleStaff, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User is a student, staff member or department admin.
// ExternalID addresses the user's realtime channel; it is not part of API responses.
// IsActive has no column default, so callers set it explicitly.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ExternalID     string    `gorm:"uniqueIndex;size:64" json:"-"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `gorm:"uniqueIndex" json:"email"`
	Role           Role      `gorm:"type:varchar(16);index" json:"role"`
	DepartmentID   *uint     `gorm:"index" json:"departmentId,omitempty"`
	TelegramChatID *int64    `json:"-"`
	IsActive       bool      `gorm:"not null" json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

// BeforeCreate assigns a UUID external id when none was provided.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ExternalID == "" {
		u.ExternalID = uuid.New().String()
	}
	return
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// InDepartment reports whether the user belongs to the given department.
func (u *User) InDepartment(departmentID uint) bool {
	return u.DepartmentID != nil && *u.DepartmentID == departmentID
}

// Actor is the verified identity on whose behalf an operation runs.
type Actor struct {
	UserID uint
	Role   Role
}

// Department groups grievances and the staff who handle them.
type Department struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Code        string    `gorm:"uniqueIndex;size:32" json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `gorm:"not null" json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}
