package handler_test

import (
	"context"

	"grievancedesk/backend/internal/dashboard"
	"grievancedesk/backend/internal/feedback"
	"grievancedesk/backend/internal/models"
	"grievancedesk/backend/internal/notification"
	"grievancedesk/backend/internal/workflow"

	"github.com/stretchr/testify/mock"
)

func result[T any](args mock.Arguments) (T, error) {
	var zero T
	if args.Get(0) == nil {
		return zero, args.Error(1)
	}
	return args.Get(0).(T), args.Error(1)
}

type MockWorkflow struct{ mock.Mock }

func (m *MockWorkflow) Create(ctx context.Context, actor models.Actor, req workflow.SubmitRequest) (*models.Grievance, error) {
	return result[*models.Grievance](m.Called(ctx, actor, req))
}

func (m *MockWorkflow) Get(ctx context.Context, actor models.Actor, id uint) (*models.Grievance, error) {
	return result[*models.Grievance](m.Called(ctx, actor, id))
}

func (m *MockWorkflow) Timeline(ctx context.Context, actor models.Actor, id uint) ([]models.TimelineEntry, error) {
	return result[[]models.TimelineEntry](m.Called(ctx, actor, id))
}

func (m *MockWorkflow) LatestTimelineEntry(ctx context.Context, actor models.Actor, id uint) (*models.TimelineEntry, error) {
	return result[*models.TimelineEntry](m.Called(ctx, actor, id))
}

func (m *MockWorkflow) Claim(ctx context.Context, actor models.Actor, id uint) (*models.Grievance, error) {
	return result[*models.Grievance](m.Called(ctx, actor, id))
}

func (m *MockWorkflow) AssignToStaff(ctx context.Context, actor models.Actor, id, staffID uint, notes string) (*models.Grievance, error) {
	return result[*models.Grievance](m.Called(ctx, actor, id, staffID, notes))
}

func (m *MockWorkflow) UpdateStatus(ctx context.Context, actor models.Actor, id uint, status, note string) (*models.Grievance, error) {
	return result[*models.Grievance](m.Called(ctx, actor, id, status, note))
}

func (m *MockWorkflow) AddNote(ctx context.Context, actor models.Actor, id uint, notes string) (*models.Grievance, error) {
	return result[*models.Grievance](m.Called(ctx, actor, id, notes))
}

func (m *MockWorkflow) Reject(ctx context.Context, actor models.Actor, id uint, reason string) (*models.Grievance, error) {
	return result[*models.Grievance](m.Called(ctx, actor, id, reason))
}

type MockRemarks struct{ mock.Mock }

func (m *MockRemarks) Add(ctx context.Context, actor models.Actor, grievanceID uint, message string, internal bool) (*models.Remark, error) {
	return result[*models.Remark](m.Called(ctx, actor, grievanceID, message, internal))
}

func (m *MockRemarks) List(ctx context.Context, actor models.Actor, grievanceID uint) ([]models.Remark, error) {
	return result[[]models.Remark](m.Called(ctx, actor, grievanceID))
}

func (m *MockRemarks) Count(ctx context.Context, actor models.Actor, grievanceID uint) (int64, error) {
	return result[int64](m.Called(ctx, actor, grievanceID))
}

func (m *MockRemarks) Latest(ctx context.Context, actor models.Actor, grievanceID uint) (*models.Remark, error) {
	return result[*models.Remark](m.Called(ctx, actor, grievanceID))
}

type MockNotifications struct{ mock.Mock }

func (m *MockNotifications) List(ctx context.Context, actor models.Actor, unreadOnly bool) ([]models.Notification, error) {
	return result[[]models.Notification](m.Called(ctx, actor, unreadOnly))
}

func (m *MockNotifications) UnreadCount(ctx context.Context, actor models.Actor) (int64, error) {
	return result[int64](m.Called(ctx, actor))
}

func (m *MockNotifications) MarkRead(ctx context.Context, actor models.Actor, id uint) (*models.Notification, error) {
	return result[*models.Notification](m.Called(ctx, actor, id))
}

func (m *MockNotifications) MarkAllRead(ctx context.Context, actor models.Actor) (int64, error) {
	return result[int64](m.Called(ctx, actor))
}

func (m *MockNotifications) Delete(ctx context.Context, actor models.Actor, id uint) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockNotifications) Preferences(ctx context.Context, actor models.Actor) (*models.NotificationPreference, error) {
	return result[*models.NotificationPreference](m.Called(ctx, actor))
}

func (m *MockNotifications) UpdatePreferences(ctx context.Context, actor models.Actor, upd notification.PreferenceUpdate) (*models.NotificationPreference, error) {
	return result[*models.NotificationPreference](m.Called(ctx, actor, upd))
}

type MockFeedback struct{ mock.Mock }

func (m *MockFeedback) Submit(ctx context.Context, actor models.Actor, req feedback.SubmitRequest) (*models.Feedback, error) {
	return result[*models.Feedback](m.Called(ctx, actor, req))
}

func (m *MockFeedback) Average(ctx context.Context, actor models.Actor, grievanceID uint) (*float64, error) {
	return result[*float64](m.Called(ctx, actor, grievanceID))
}

func (m *MockFeedback) ListByGrievance(ctx context.Context, actor models.Actor, grievanceID uint) ([]models.Feedback, error) {
	return result[[]models.Feedback](m.Called(ctx, actor, grievanceID))
}

func (m *MockFeedback) MyHistory(ctx context.Context, actor models.Actor) ([]models.Feedback, error) {
	return result[[]models.Feedback](m.Called(ctx, actor))
}

type MockDashboards struct{ mock.Mock }

func (m *MockDashboards) Student(ctx context.Context, actor models.Actor) (*dashboard.StudentStats, error) {
	return result[*dashboard.StudentStats](m.Called(ctx, actor))
}

func (m *MockDashboards) StudentGrievances(ctx context.Context, actor models.Actor) ([]models.Grievance, error) {
	return result[[]models.Grievance](m.Called(ctx, actor))
}

func (m *MockDashboards) Staff(ctx context.Context, actor models.Actor) (*dashboard.StaffStats, error) {
	return result[*dashboard.StaffStats](m.Called(ctx, actor))
}

func (m *MockDashboards) StaffGrievances(ctx context.Context, actor models.Actor) ([]models.Grievance, error) {
	return result[[]models.Grievance](m.Called(ctx, actor))
}

func (m *MockDashboards) Department(ctx context.Context, actor models.Actor) (*dashboard.DepartmentStats, error) {
	return result[*dashboard.DepartmentStats](m.Called(ctx, actor))
}

func (m *MockDashboards) DepartmentGrievances(ctx context.Context, actor models.Actor) ([]models.Grievance, error) {
	return result[[]models.Grievance](m.Called(ctx, actor))
}

func (m *MockDashboards) DepartmentStaff(ctx context.Context, actor models.Actor) ([]models.User, error) {
	return result[[]models.User](m.Called(ctx, actor))
}

func (m *MockDashboards) StaffPerformance(ctx context.Context, actor models.Actor) ([]dashboard.StaffPerformance, error) {
	return result[[]dashboard.StaffPerformance](m.Called(ctx, actor))
}

type MockTelegramLinks struct{ mock.Mock }

func (m *MockTelegramLinks) Issue(ctx context.Context, actor models.Actor) (*models.TelegramLinkCode, error) {
	return result[*models.TelegramLinkCode](m.Called(ctx, actor))
}

type MockPinger struct{ mock.Mock }

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
