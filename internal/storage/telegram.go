package storage

import (
	"context"
	"time"

	"grievancedesk/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReplaceTelegramLinkCode stores c and drops any earlier code of the same user.
func (s *Service) ReplaceTelegramLinkCode(ctx context.Context, c *models.TelegramLinkCode) error {
	return translate(s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", c.UserID).Delete(&models.TelegramLinkCode{}).Error; err != nil {
			return err
		}
		return tx.Create(c).Error
	}))
}

// ConsumeTelegramLinkCode deletes an unexpired code and returns its user.
// Unknown, expired and already used codes all yield ErrNotFound.
func (s *Service) ConsumeTelegramLinkCode(ctx context.Context, code string, now time.Time) (uint, error) {
	var consumed []models.TelegramLinkCode
	res := s.db(ctx).
		Clauses(clause.Returning{}).
		Where("code = ? AND expires_at > ?", code, now).
		Delete(&consumed)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	if res.RowsAffected == 0 || len(consumed) == 0 {
		return 0, ErrNotFound
	}
	return consumed[0].UserID, nil
}

func (s *Service) GetUserByTelegramChat(ctx context.Context, chatID int64) (*models.User, error) {
	var u models.User
	if err := s.db(ctx).Where("telegram_chat_id = ?", chatID).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}
