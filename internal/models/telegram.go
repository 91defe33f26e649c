package models

import "time"

// TelegramLinkCode is a single-use token a signed-in user hands to the bot
// with /start to bind their chat.
type TelegramLinkCode struct {
	Code      string    `gorm:"primaryKey;size:64" json:"code"`
	UserID    uint      `gorm:"index;not null" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expiresAt"`
	CreatedAt time.Time `json:"-"`
}
