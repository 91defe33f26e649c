package models

import (
	"time"

	"gorm.io/datatypes"
)

// TimelineEntry is an append-only record of a grievance state change.
// UpdatedBy is nil for system entries.
type TimelineEntry struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	GrievanceID uint              `gorm:"index;not null" json:"grievanceId"`
	Status      Status            `gorm:"type:varchar(32)" json:"status"`
	Note        string            `gorm:"type:text" json:"note"`
	UpdatedBy   *uint             `json:"updatedBy,omitempty"`
	Details     datatypes.JSONMap `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt   time.Time         `gorm:"index" json:"createdAt"`
}

func (TimelineEntry) TableName() string { return "grievance_timeline" }

// NewTimelineEntry builds an entry describing a move from one status to another.
func NewTimelineEntry(g *Grievance, from Status, action, note string, by *uint) *TimelineEntry {
	return &TimelineEntry{
		GrievanceID: g.ID,
		Status:      g.Status,
		Note:        note,
		UpdatedBy:   by,
		Details: datatypes.JSONMap{
			"action": action,
			"from":   string(from),
			"to":     string(g.Status),
		},
	}
}
