package storage

import (
	"context"
	"time"

	"grievancedesk/backend/internal/models"
)

func (s *Service) CreateNotification(ctx context.Context, n *models.Notification) error {
	return translate(s.db(ctx).Create(n).Error)
}

func (s *Service) GetNotification(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.db(ctx).First(&n, id).Error; err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]models.Notification, error) {
	q := s.db(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var out []models.Notification
	err := q.Order("created_at desc, id desc").Find(&out).Error
	return out, translate(err)
}

func (s *Service) CountUnreadNotifications(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, translate(err)
}

// MarkNotificationRead flips an unread notification to read. It reports false
// when the notification was already read, leaving ReadAt untouched.
func (s *Service) MarkNotificationRead(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := s.db(ctx).Model(&models.Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	res := s.db(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected, translate(res.Error)
}

func (s *Service) DeleteNotification(ctx context.Context, id uint) error {
	res := s.db(ctx).Delete(&models.Notification{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeNotificationsBefore deletes notifications created before cutoff.
func (s *Service) PurgeNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db(ctx).Where("created_at < ?", cutoff).Delete(&models.Notification{})
	return res.RowsAffected, translate(res.Error)
}

// GetOrCreatePreference loads the user's preferences, inserting the all-enabled
// defaults on first access.
func (s *Service) GetOrCreatePreference(ctx context.Context, userID uint) (*models.NotificationPreference, error) {
	pref := models.DefaultPreference(userID)
	err := s.db(ctx).
		Where(models.NotificationPreference{UserID: userID}).
		Attrs(models.DefaultPreference(userID)).
		FirstOrCreate(&pref).Error
	if err != nil {
		return nil, translate(err)
	}
	return &pref, nil
}

func (s *Service) SavePreference(ctx context.Context, p *models.NotificationPreference) error {
	return translate(s.db(ctx).Save(p).Error)
}
