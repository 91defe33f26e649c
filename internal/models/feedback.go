package models

import "time"

// Feedback is a rating a student leaves on a resolved grievance. The
// composite unique index allows one row per grievance and submitter.
type Feedback struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	GrievanceID uint      `gorm:"uniqueIndex:idx_feedback_grievance_submitter;not null" json:"grievanceId"`
	SubmittedBy uint      `gorm:"uniqueIndex:idx_feedback_grievance_submitter;not null" json:"submittedBy"`
	Rating      int       `gorm:"not null" json:"rating"`
	Comment     string    `gorm:"type:text" json:"comment"`
	CreatedAt   time.Time `json:"createdAt"`
}

// All returns every persisted model, in migration order.
func All() []any {
	return []any{
		&Department{},
		&Category{},
		&User{},
		&Grievance{},
		&TimelineEntry{},
		&Remark{},
		&Notification{},
		&NotificationPreference{},
		&Feedback{},
		&TelegramLinkCode{},
	}
}
