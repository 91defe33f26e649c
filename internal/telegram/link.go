package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"grievancedesk/backend/internal/config"
	"grievancedesk/backend/internal/models"

	"github.com/google/uuid"
)

// CodeStore persists link codes.
type CodeStore interface {
	ReplaceTelegramLinkCode(ctx context.Context, c *models.TelegramLinkCode) error
}

// LinkCodes issues the codes a user sends to the bot with /start.
type LinkCodes struct {
	store CodeStore
	ttl   time.Duration
	now   func() time.Time
}

func NewLinkCodes(store CodeStore) *LinkCodes {
	return &LinkCodes{store: store, ttl: config.TelegramLinkCodeTTL, now: time.Now}
}

// Issue mints a fresh code for actor. Any earlier unused code stops working.
func (l *LinkCodes) Issue(ctx context.Context, actor models.Actor) (*models.TelegramLinkCode, error) {
	c := &models.TelegramLinkCode{
		Code:      strings.ReplaceAll(uuid.NewString(), "-", ""),
		UserID:    actor.UserID,
		ExpiresAt: l.now().Add(l.ttl),
	}
	if err := l.store.ReplaceTelegramLinkCode(ctx, c); err != nil {
		return nil, fmt.Errorf("store link code for user %d: %w", actor.UserID, err)
	}
	return c, nil
}
