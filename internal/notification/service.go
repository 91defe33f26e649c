// Package notification persists per-user notifications, gates them on the
// recipient's preferences and pushes them to live connections.
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grievancedesk/backend/internal/apperr"
	"grievancedesk/backend/internal/config"
	"grievancedesk/backend/internal/logger"
	"grievancedesk/backend/internal/models"
	"grievancedesk/backend/internal/realtime"
	"grievancedesk/backend/internal/storage"

	"github.com/sirupsen/logrus"
)

// Store is the persistence this package needs.
type Store interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetOrCreatePreference(ctx context.Context, userID uint) (*models.NotificationPreference, error)
	SavePreference(ctx context.Context, p *models.NotificationPreference) error

	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id uint) (*models.Notification, error)
	ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]models.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID uint) (int64, error)
	MarkNotificationRead(ctx context.Context, id uint, at time.Time) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, userID uint, at time.Time) (int64, error)
	DeleteNotification(ctx context.Context, id uint) error
	PurgeNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PushSender delivers a notification outside the web app.
type PushSender interface {
	SendPush(ctx context.Context, chatID int64, title, message string) error
}

// Request describes one notification to deliver.
type Request struct {
	UserID      uint
	Type        models.NotificationType
	Title       string
	Message     string
	GrievanceID *uint
}

type Service struct {
	store     Store
	publisher realtime.Publisher
	push      PushSender
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewService wires the dispatcher. push may be nil.
func NewService(store Store, publisher realtime.Publisher, push PushSender, log logrus.FieldLogger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		push:      push,
		log:       logger.Or(log).WithField("component", "notification"),
		now:       time.Now,
	}
}

// Notify runs the preference gate, persists the notification and pushes it to
// the recipient's channel. It returns (nil, nil) when the recipient opted out.
// Push failures are logged and do not fail the call.
func (s *Service) Notify(ctx context.Context, req Request) (*models.Notification, error) {
	pref, err := s.store.GetOrCreatePreference(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load preferences for user %d: %w", req.UserID, err)
	}
	if !pref.Allows(req.Type) {
		s.log.WithFields(logrus.Fields{"user_id": req.UserID, "type": req.Type}).Debug("notification suppressed by preference")
		return nil, nil
	}

	user, err := s.store.GetUserByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load recipient %d: %w", req.UserID, err)
	}

	n := &models.Notification{
		UserID:      req.UserID,
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		GrievanceID: req.GrievanceID,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	ev := models.Event{
		Type:      models.EventNotification,
		Payload:   n,
		Sender:    "system",
		Timestamp: s.now(),
	}
	if n.GrievanceID != nil {
		ev.GrievanceID = *n.GrievanceID
	}
	if err := s.publisher.PublishToUser(ctx, user.ExternalID, ev); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("realtime push failed")
	}

	if s.push != nil && pref.PushNotifications && user.TelegramChatID != nil {
		if err := s.push.SendPush(ctx, *user.TelegramChatID, n.Title, n.Message); err != nil {
			s.log.WithError(err).WithField("user_id", user.ID).Warn("telegram push failed")
		}
	}
	return n, nil
}

// Detach returns a context that keeps ctx's values but not its cancellation,
// bounded by config.DispatchTimeout. Work that follows a committed write runs
// on it so a disconnecting client cannot drop the side effects.
func Detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), config.DispatchTimeout)
}

// Dispatch is the fire-and-forget form of Notify used after a workflow commit.
func (s *Service) Dispatch(ctx context.Context, req Request) {
	ctx, cancel := Detach(ctx)
	defer cancel()
	if _, err := s.Notify(ctx, req); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id": req.UserID,
			"type":    req.Type,
		}).Error("notification dispatch failed")
	}
}

func (s *Service) List(ctx context.Context, actor models.Actor, unreadOnly bool) ([]models.Notification, error) {
	return s.store.ListNotifications(ctx, actor.UserID, unreadOnly)
}

func (s *Service) UnreadCount(ctx context.Context, actor models.Actor) (int64, error) {
	return s.store.CountUnreadNotifications(ctx, actor.UserID)
}

// owned loads a notification and checks it belongs to actor.
func (s *Service) owned(ctx context.Context, actor models.Actor, id uint) (*models.Notification, error) {
	n, err := s.store.GetNotification(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("notification %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	if n.UserID != actor.UserID {
		return nil, apperr.Forbidden("notification %d belongs to another user", id)
	}
	return n, nil
}

// MarkRead sets the read flag and timestamp on first call; later calls leave
// the first timestamp in place.
func (s *Service) MarkRead(ctx context.Context, actor models.Actor, id uint) (*models.Notification, error) {
	n, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}

	at := s.now()
	changed, err := s.store.MarkNotificationRead(ctx, id, at)
	if err != nil {
		return nil, err
	}
	if !changed {
		// A concurrent request read it first.
		return s.store.GetNotification(ctx, id)
	}
	n.IsRead = true
	n.ReadAt = &at
	return n, nil
}

func (s *Service) MarkAllRead(ctx context.Context, actor models.Actor) (int64, error) {
	return s.store.MarkAllNotificationsRead(ctx, actor.UserID, s.now())
}

func (s *Service) Delete(ctx context.Context, actor models.Actor, id uint) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	err := s.store.DeleteNotification(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound("notification %d not found", id)
	}
	return err
}

// PurgeOlderThan deletes every notification created more than age ago.
func (s *Service) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := s.now().Add(-age)
	n, err := s.store.PurgeNotificationsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge notifications before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return n, nil
}
