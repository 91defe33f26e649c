package models

import "time"

// EventType names a realtime message pushed to websocket clients.
type EventType string

const (
	EventStatusUpdate EventType = "STATUS_UPDATE"
	EventNewRemark    EventType = "NEW_REMARK"
	EventNotification EventType = "NOTIFICATION"
)

// Event is the JSON frame delivered over the websocket.
type Event struct {
	Type        EventType      `json:"type"`
	GrievanceID uint           `json:"grievanceId,omitempty"`
	Payload     any            `json:"payload"`
	Sender      string         `json:"sender"`
	Timestamp   time.Time      `json:"timestamp"`
	ExtraData   map[string]any `json:"extraData,omitempty"`
}

// Subscription is an inbound websocket command to follow or stop following a
// grievance topic.
type Subscription struct {
	Action      string `json:"action"`
	GrievanceID uint   `json:"grievanceId"`
}
