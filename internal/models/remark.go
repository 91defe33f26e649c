package models

import "time"

// Remark is a comment on a grievance. UserType is the author's role at the
// time of writing.
type Remark struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	GrievanceID uint      `gorm:"index;not null" json:"grievanceId"`
	UserID      uint      `gorm:"not null" json:"userId"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	UserType    Role      `gorm:"type:varchar(16)" json:"userType"`
	IsInternal  bool      `gorm:"default:false" json:"isInternal"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
}

// VisibleToStudents is true for public remarks and for anything a student
// wrote, internal or not.
func (r *Remark) VisibleToStudents() bool {
	return !r.IsInternal || r.UserType == RoleStudent
}
