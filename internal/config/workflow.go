package config

import "time"

const (
	// Feedback
	MinRating = 1
	MaxRating = 5

	// Remarks longer than this are truncated in notification text.
	RemarkPreviewLength = 50

	// Notifications
	DefaultRetentionDays = 90
	PurgeJobTimeout      = time.Minute

	// Post-commit notifications and broadcasts outlive the request that
	// triggered them, up to this long.
	DispatchTimeout = 10 * time.Second

	// Dashboards
	RecentActivityWindow = 7 * 24 * time.Hour

	// Identity
	TokenTTL    = 72 * time.Hour
	TokenIssuer = "grievancedesk"

	// Telegram link codes are single use.
	TelegramLinkCodeTTL = 10 * time.Minute
)
