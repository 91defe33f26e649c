package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Status is the lifecycle state of a grievance. The string values are part of
// the API contract.
type Status string

const (
	StatusSubmitted       Status = "submitted"
	StatusUnderReview     Status = "under_review"
	StatusAssignedToAdmin Status = "assigned_to_admin"
	StatusInProgress      Status = "in_progress"
	StatusResolved        Status = "resolved"
	StatusRejected        Status = "rejected"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusSubmitted,
	StatusUnderReview,
	StatusAssignedToAdmin,
	StatusInProgress,
	StatusResolved,
	StatusRejected,
}

// ParseStatus matches the exact lowercase contract value.
func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid status %q", s)
}

// StaffSettable reports whether an assignee may move a grievance into s.
// assigned_to_admin is reserved for the claim operation.
func (s Status) StaffSettable() bool {
	switch s {
	case StatusSubmitted, StatusUnderReview, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority is case-insensitive and normalises to lowercase.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, nil
	}
	return "", fmt.Errorf("invalid priority %q, must be one of: low, medium, high, urgent", s)
}

// Grievance is a complaint filed by a student against a department.
type Grievance struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Code            string         `gorm:"uniqueIndex;size:32;not null" json:"grievanceId"`
	Title           string         `gorm:"not null" json:"title"`
	Description     string         `gorm:"type:text" json:"description"`
	StudentID       uint           `gorm:"index;not null" json:"studentId"`
	CategoryID      uint           `json:"categoryId"`
	DepartmentID    uint           `gorm:"index;not null" json:"departmentId"`
	Priority        Priority       `gorm:"type:varchar(16);default:'medium'" json:"priority"`
	Status          Status         `gorm:"type:varchar(32);index;default:'submitted'" json:"status"`
	AssignedTo      *uint          `gorm:"index" json:"assignedTo,omitempty"`
	AssignedAdminID *uint          `json:"assignedAdminId,omitempty"`
	ResolvedBy      *uint          `json:"resolvedBy,omitempty"`
	ResolutionNotes string         `gorm:"type:text" json:"resolutionNotes"`
	ResolvedAt      *time.Time     `json:"resolvedAt,omitempty"`
	HasAttachments  bool           `json:"hasAttachments"`
	AttachmentPaths pq.StringArray `gorm:"type:text[]" json:"attachmentPaths,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	Version         int            `gorm:"not null;default:0" json:"-"`
}

// BeforeCreate assigns the public code once. It is never part of an update.
func (g *Grievance) BeforeCreate(tx *gorm.DB) (err error) {
	if g.Code == "" {
		g.Code = NewGrievanceCode(time.Now())
	}
	if g.Status == "" {
		g.Status = StatusSubmitted
	}
	g.HasAttachments = len(g.AttachmentPaths) > 0
	return
}

// NewGrievanceCode formats the public identifier for a grievance created at t.
func NewGrievanceCode(t time.Time) string {
	return "GRV" + strconv.FormatInt(t.UnixMilli(), 10)
}

// TransitionTo moves the grievance into status and keeps ResolvedAt in step:
// it is set on entering resolved and cleared on leaving it.
func (g *Grievance) TransitionTo(status Status, by uint, now time.Time) {
	if status == StatusResolved {
		if g.Status != StatusResolved || g.ResolvedAt == nil {
			g.ResolvedAt = &now
		}
		g.ResolvedBy = &by
	} else {
		g.ResolvedAt = nil
		g.ResolvedBy = nil
	}
	g.Status = status
	g.UpdatedAt = now
}

// AppendNotes adds a line to the resolution notes.
func (g *Grievance) AppendNotes(line string) {
	if g.ResolutionNotes == "" {
		g.ResolutionNotes = line
		return
	}
	g.ResolutionNotes += "\n" + line
}

// IsAssignee reports whether userID is the current assignee.
func (g *Grievance) IsAssignee(userID uint) bool {
	return g.AssignedTo != nil && *g.AssignedTo == userID
}

// VisibleTo decides read access: students see their own grievances, staff see
// what is assigned to them and admins see their department.
func (g *Grievance) VisibleTo(u *User) bool {
	switch u.Role {
	case RoleStudent:
		return g.StudentID == u.ID
	case RoleStaff:
		return g.IsAssignee(u.ID)
	case RoleAdmin:
		return u.InDepartment(g.DepartmentID)
	}
	return false
}
