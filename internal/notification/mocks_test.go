package notification_test

import (
	"context"
	"time"

	"grievancedesk/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockStore implements notification.Store with testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) GetOrCreatePreference(ctx context.Context, userID uint) (*models.NotificationPreference, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.NotificationPreference), args.Error(1)
}

func (m *MockStore) SavePreference(ctx context.Context, p *models.NotificationPreference) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	if args.Error(0) == nil {
		n.ID = 100
		n.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockStore) GetNotification(ctx context.Context, id uint) (*models.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockStore) ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]models.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockStore) CountUnreadNotifications(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) MarkNotificationRead(ctx context.Context, id uint, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) MarkAllNotificationsRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	args := m.Called(ctx, userID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) DeleteNotification(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) PurgeNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishToUser(ctx context.Context, externalID string, ev models.Event) error {
	return m.Called(ctx, externalID, ev).Error(0)
}

func (m *MockPublisher) Broadcast(ctx context.Context, grievanceID uint, ev models.Event) error {
	return m.Called(ctx, grievanceID, ev).Error(0)
}

type MockPush struct {
	mock.Mock
}

func (m *MockPush) SendPush(ctx context.Context, chatID int64, title, message string) error {
	return m.Called(ctx, chatID, title, message).Error(0)
}
