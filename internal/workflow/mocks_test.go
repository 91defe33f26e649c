package workflow_test

import (
	"context"
	"sync"

	"grievancedesk/backend/internal/models"
	"grievancedesk/backend/internal/notification"

	"github.com/stretchr/testify/mock"
)

// MockStore implements workflow.Store with testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Copy so the service can mutate its view without touching the fixture.
	u := *args.Get(0).(*models.User)
	return &u, args.Error(1)
}

func (m *MockStore) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockStore) GetDepartment(ctx context.Context, id uint) (*models.Department, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Department), args.Error(1)
}

func (m *MockStore) CreateGrievance(ctx context.Context, g *models.Grievance, entry *models.TimelineEntry) error {
	args := m.Called(ctx, g, entry)
	if args.Error(0) == nil {
		g.ID = 1
		g.Code = "GRV1700000000000"
		entry.GrievanceID = g.ID
	}
	return args.Error(0)
}

func (m *MockStore) GetGrievance(ctx context.Context, id uint) (*models.Grievance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	g := *args.Get(0).(*models.Grievance)
	return &g, args.Error(1)
}

func (m *MockStore) ApplyTransition(ctx context.Context, g *models.Grievance, expectedVersion int, entry *models.TimelineEntry) error {
	args := m.Called(ctx, g, expectedVersion, entry)
	if args.Error(0) == nil {
		g.Version = expectedVersion + 1
	}
	return args.Error(0)
}

func (m *MockStore) LatestTimelineEntry(ctx context.Context, grievanceID uint) (*models.TimelineEntry, error) {
	args := m.Called(ctx, grievanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimelineEntry), args.Error(1)
}

func (m *MockStore) ListTimeline(ctx context.Context, grievanceID uint) ([]models.TimelineEntry, error) {
	args := m.Called(ctx, grievanceID)
	return args.Get(0).([]models.TimelineEntry), args.Error(1)
}

// RecordingNotifier captures dispatched notifications.
// CtxErrs holds ctx.Err() as seen by each dispatch.
type RecordingNotifier struct {
	mu      sync.Mutex
	Sent    []notification.Request
	CtxErrs []error
}

func (r *RecordingNotifier) Dispatch(ctx context.Context, req notification.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = append(r.Sent, req)
	r.CtxErrs = append(r.CtxErrs, ctx.Err())
}

func (r *RecordingNotifier) Types() []models.NotificationType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.NotificationType, 0, len(r.Sent))
	for _, req := range r.Sent {
		out = append(out, req.Type)
	}
	return out
}

// RecordingPublisher captures broadcasts and can be told to fail.
type RecordingPublisher struct {
	mu      sync.Mutex
	Events  []models.Event
	CtxErrs []error
	Err     error
}

func (p *RecordingPublisher) PublishToUser(ctx context.Context, _ string, ev models.Event) error {
	return p.record(ctx, ev)
}

func (p *RecordingPublisher) Broadcast(ctx context.Context, _ uint, ev models.Event) error {
	return p.record(ctx, ev)
}

func (p *RecordingPublisher) record(ctx context.Context, ev models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, ev)
	p.CtxErrs = append(p.CtxErrs, ctx.Err())
	return p.Err
}
