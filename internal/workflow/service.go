// Package workflow owns the grievance lifecycle: submission, claiming,
// assignment, status changes and rejection. Every mutation is a
// compare-and-swap on the grievance version plus one timeline entry, and
// notifications go out only after the write has committed.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"grievancedesk/backend/internal/apperr"
	"grievancedesk/backend/internal/logger"
	"grievancedesk/backend/internal/models"
	"grievancedesk/backend/internal/notification"
	"grievancedesk/backend/internal/realtime"
	"grievancedesk/backend/internal/storage"

	"github.com/sirupsen/logrus"
)

// Store is the persistence the workflow needs.
type Store interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetCategory(ctx context.Context, id uint) (*models.Category, error)
	GetDepartment(ctx context.Context, id uint) (*models.Department, error)

	CreateGrievance(ctx context.Context, g *models.Grievance, entry *models.TimelineEntry) error
	GetGrievance(ctx context.Context, id uint) (*models.Grievance, error)
	ApplyTransition(ctx context.Context, g *models.Grievance, expectedVersion int, entry *models.TimelineEntry) error
	ListTimeline(ctx context.Context, grievanceID uint) ([]models.TimelineEntry, error)
	LatestTimelineEntry(ctx context.Context, grievanceID uint) (*models.TimelineEntry, error)
}

// Notifier delivers a notification without reporting failure.
type Notifier interface {
	Dispatch(ctx context.Context, req notification.Request)
}

type Service struct {
	store     Store
	notifier  Notifier
	publisher realtime.Publisher
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewService(store Store, notifier Notifier, publisher realtime.Publisher, log logrus.FieldLogger) *Service {
	return &Service{
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		log:       logger.Or(log).WithField("component", "workflow"),
		now:       time.Now,
	}
}

// SubmitRequest is a student's new grievance.
type SubmitRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	CategoryID      uint     `json:"categoryId"`
	DepartmentID    uint     `json:"departmentId"`
	Priority        string   `json:"priority"`
	AttachmentPaths []string `json:"attachmentPaths"`
}

// Create files a grievance for a student. Priority defaults to medium.
func (s *Service) Create(ctx context.Context, actor models.Actor, req SubmitRequest) (*models.Grievance, error) {
	if actor.Role != models.RoleStudent {
		return nil, apperr.Forbidden("only students can submit grievances")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.Invalid("title is required")
	}

	priority := models.PriorityMedium
	if strings.TrimSpace(req.Priority) != "" {
		p, err := models.ParsePriority(req.Priority)
		if err != nil {
			return nil, apperr.Invalid("%v", err)
		}
		priority = p
	}

	category, err := s.store.GetCategory(ctx, req.CategoryID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("category %d not found", req.CategoryID)
	}
	if err != nil {
		return nil, err
	}
	if !category.IsActive {
		return nil, apperr.Invalid("category %q is not accepting grievances", category.Name)
	}
	if _, err := s.store.GetDepartment(ctx, req.DepartmentID); errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("department %d not found", req.DepartmentID)
	} else if err != nil {
		return nil, err
	}

	g := &models.Grievance{
		Title:           title,
		Description:     strings.TrimSpace(req.Description),
		StudentID:       actor.UserID,
		CategoryID:      req.CategoryID,
		DepartmentID:    req.DepartmentID,
		Priority:        priority,
		Status:          models.StatusSubmitted,
		AttachmentPaths: req.AttachmentPaths,
	}
	entry := &models.TimelineEntry{
		Status:    models.StatusSubmitted,
		Note:      "Grievance submitted",
		UpdatedBy: &actor.UserID,
	}
	if err := s.store.CreateGrievance(ctx, g, entry); err != nil {
		return nil, fmt.Errorf("create grievance: %w", err)
	}

	s.log.WithFields(logrus.Fields{"grievance_id": g.ID, "code": g.Code, "student_id": actor.UserID}).Info("grievance submitted")
	return g, nil
}

// Get returns a grievance the actor is allowed to read.
func (s *Service) Get(ctx context.Context, actor models.Actor, id uint) (*models.Grievance, error) {
	user, err := s.actor(ctx, actor)
	if err != nil {
		return nil, err
	}
	g, err := s.grievance(ctx, id)
	if err != nil {
		return nil, err
	}
	if !g.VisibleTo(user) {
		return nil, apperr.Forbidden("no access to grievance %d", id)
	}
	return g, nil
}

// Timeline lists a grievance's history oldest first.
func (s *Service) Timeline(ctx context.Context, actor models.Actor, id uint) ([]models.TimelineEntry, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.store.ListTimeline(ctx, id)
}

// LatestTimelineEntry returns the most recent entry of a grievance the actor can see.
func (s *Service) LatestTimelineEntry(ctx context.Context, actor models.Actor, id uint) (*models.TimelineEntry, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	e, err := s.store.LatestTimelineEntry(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("grievance %d has no timeline", id)
	}
	return e, err
}

// actor loads the caller's row. The token role is authoritative for the
// operation; the row supplies department and name.
func (s *Service) actor(ctx context.Context, actor models.Actor) (*models.User, error) {
	u, err := s.store.GetUserByID(ctx, actor.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("user %d not found", actor.UserID)
	}
	if err != nil {
		return nil, err
	}
	u.Role = actor.Role
	return u, nil
}

func (s *Service) grievance(ctx context.Context, id uint) (*models.Grievance, error) {
	g, err := s.store.GetGrievance(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("grievance %d not found", id)
	}
	return g, err
}

// admin loads the caller and the grievance and checks the caller is an admin
// of the grievance's department.
func (s *Service) admin(ctx context.Context, actor models.Actor, id uint) (*models.User, *models.Grievance, error) {
	if actor.Role != models.RoleAdmin {
		return nil, nil, apperr.Forbidden("admin role required")
	}
	user, err := s.actor(ctx, actor)
	if err != nil {
		return nil, nil, err
	}
	g, err := s.grievance(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !user.InDepartment(g.DepartmentID) {
		return nil, nil, apperr.Forbidden("grievance %d belongs to another department", id)
	}
	return user, g, nil
}

// commit persists the mutated grievance against the version it was read at.
func (s *Service) commit(ctx context.Context, g *models.Grievance, version int, entry *models.TimelineEntry) error {
	err := s.store.ApplyTransition(ctx, g, version, entry)
	if errors.Is(err, storage.ErrStaleWrite) {
		return apperr.Conflict("grievance %d was changed by someone else, reload and retry", g.ID).Wrap(err)
	}
	if err != nil {
		return fmt.Errorf("update grievance %d: %w", g.ID, err)
	}
	return nil
}

// notify and broadcast run after commit, so they detach from the request.
func (s *Service) notify(ctx context.Context, userID uint, kind models.NotificationType, g *models.Grievance, title, message string) {
	ctx, cancel := notification.Detach(ctx)
	defer cancel()
	gid := g.ID
	s.notifier.Dispatch(ctx, notification.Request{
		UserID:      userID,
		Type:        kind,
		Title:       title,
		Message:     message,
		GrievanceID: &gid,
	})
}

func (s *Service) broadcast(ctx context.Context, g *models.Grievance, sender string, extra map[string]any) {
	ev := models.Event{
		Type:        models.EventStatusUpdate,
		GrievanceID: g.ID,
		Payload:     g,
		Sender:      sender,
		Timestamp:   s.now(),
		ExtraData:   extra,
	}
	ctx, cancel := notification.Detach(ctx)
	defer cancel()
	if err := s.publisher.Broadcast(ctx, g.ID, ev); err != nil {
		s.log.WithError(err).WithField("grievance_id", g.ID).Warn("status broadcast failed")
	}
}
