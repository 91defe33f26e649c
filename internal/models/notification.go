package models

import "time"

// NotificationType is an open set; unknown types are delivered unconditionally.
type NotificationType string

const (
	NotificationStatusUpdate      NotificationType = "STATUS_UPDATE"
	NotificationNewRemark         NotificationType = "NEW_REMARK"
	NotificationGrievanceAssigned NotificationType = "GRIEVANCE_ASSIGNED"
	NotificationFeedbackRequest   NotificationType = "FEEDBACK_REQUEST"
	NotificationResolved          NotificationType = "RESOLVED"
)

type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UserID      uint             `gorm:"index;not null" json:"userId"`
	Type        NotificationType `gorm:"type:varchar(32)" json:"type"`
	Title       string           `json:"title"`
	Message     string           `gorm:"type:text" json:"message"`
	GrievanceID *uint            `json:"grievanceId,omitempty"`
	IsRead      bool             `gorm:"default:false;index" json:"isRead"`
	ReadAt      *time.Time       `json:"readAt,omitempty"`
	CreatedAt   time.Time        `gorm:"index" json:"createdAt"`
}

// NotificationPreference holds per-user delivery switches. The zero row is
// never used: DefaultPreference enables everything.
type NotificationPreference struct {
	UserID             uint      `gorm:"primaryKey" json:"userId"`
	PushNotifications  bool      `json:"pushNotifications"`
	EmailNotifications bool      `json:"emailNotifications"`
	StatusUpdates      bool      `json:"statusUpdates"`
	NewRemarks         bool      `json:"newRemarks"`
	GrievanceResolved  bool      `json:"grievanceResolved"`
	FeedbackReminders  bool      `json:"feedbackReminders"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func DefaultPreference(userID uint) NotificationPreference {
	return NotificationPreference{
		UserID:             userID,
		PushNotifications:  true,
		EmailNotifications: true,
		StatusUpdates:      true,
		NewRemarks:         true,
		GrievanceResolved:  true,
		FeedbackReminders:  true,
	}
}

// Allows applies the category gate. RESOLVED and GRIEVANCE_ASSIGNED are
// governed by the status-updates switch.
func (p *NotificationPreference) Allows(t NotificationType) bool {
	switch t {
	case NotificationStatusUpdate, NotificationResolved, NotificationGrievanceAssigned:
		return p.StatusUpdates
	case NotificationNewRemark:
		return p.NewRemarks
	case NotificationFeedbackRequest:
		return p.FeedbackReminders
	default:
		return true
	}
}
