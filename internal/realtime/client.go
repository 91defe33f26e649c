package realtime

import "grievancedesk/backend/internal/models"

// Client is one live connection registered with the Hub.
type Client interface {
	// GetUserID returns the external id of the connected user.
	GetUserID() string

	// GetSendChannel returns the channel the hub writes events to.
	GetSendChannel() chan<- models.Event

	// Run starts the client's read and write pumps.
	Run()

	// Close shuts down the send channel. The hub calls it exactly once, when
	// the client is unregistered.
	Close()
}
