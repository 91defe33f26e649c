// Package remark keeps the comment thread of each grievance.
package remark

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"grievancedesk/backend/internal/apperr"
	"grievancedesk/backend/internal/config"
	"grievancedesk/backend/internal/logger"
	"grievancedesk/backend/internal/models"
	"grievancedesk/backend/internal/notification"
	"grievancedesk/backend/internal/realtime"
	"grievancedesk/backend/internal/storage"

	"github.com/sirupsen/logrus"
)

type Store interface {
	CreateRemark(ctx context.Context, r *models.Remark) error
	ListRemarks(ctx context.Context, grievanceID uint, studentView bool) ([]models.Remark, error)
	CountRemarks(ctx context.Context, grievanceID uint, studentView bool) (int64, error)
	LatestRemark(ctx context.Context, grievanceID uint, studentView bool) (*models.Remark, error)
}

// GrievanceReader returns a grievance if the actor may see it.
type GrievanceReader interface {
	Get(ctx context.Context, actor models.Actor, id uint) (*models.Grievance, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, req notification.Request)
}

type Service struct {
	store      Store
	grievances GrievanceReader
	notifier   Notifier
	publisher  realtime.Publisher
	log        logrus.FieldLogger
	now        func() time.Time
}

func NewService(store Store, grievances GrievanceReader, notifier Notifier, publisher realtime.Publisher, log logrus.FieldLogger) *Service {
	return &Service{
		store:      store,
		grievances: grievances,
		notifier:   notifier,
		publisher:  publisher,
		log:        logger.Or(log).WithField("component", "remark"),
		now:        time.Now,
	}
}

// studentView reports whether role reads the filtered thread.
func studentView(role models.Role) bool {
	return role == models.RoleStudent
}

// Preview shortens a message for notification text.
func Preview(message string) string {
	if utf8.RuneCountInString(message) <= config.RemarkPreviewLength {
		return message
	}
	runes := []rune(message)
	return string(runes[:config.RemarkPreviewLength]) + "..."
}

// Add appends a remark. Students cannot write internal remarks.
func (s *Service) Add(ctx context.Context, actor models.Actor, grievanceID uint, message string, internal bool) (*models.Remark, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperr.Invalid("remark message cannot be empty")
	}
	g, err := s.grievances.Get(ctx, actor, grievanceID)
	if err != nil {
		return nil, err
	}

	r := &models.Remark{
		GrievanceID: g.ID,
		UserID:      actor.UserID,
		Message:     message,
		UserType:    actor.Role,
		IsInternal:  internal && actor.Role != models.RoleStudent,
	}
	if err := s.store.CreateRemark(ctx, r); err != nil {
		return nil, fmt.Errorf("create remark: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"grievance_id": g.ID,
		"user_id":      actor.UserID,
		"internal":     r.IsInternal,
	}).Info("remark added")

	if r.IsInternal {
		return r, nil
	}

	// The remark is stored; what follows must not depend on the caller staying connected.
	ctx, cancel := notification.Detach(ctx)
	defer cancel()

	if recipient, ok := recipientFor(actor, g); ok {
		gid := g.ID
		s.notifier.Dispatch(ctx, notification.Request{
			UserID:      recipient,
			Type:        models.NotificationNewRemark,
			Title:       "New Remark",
			Message:     fmt.Sprintf("New remark on grievance '%s': %s", g.Title, Preview(message)),
			GrievanceID: &gid,
		})
	}

	ev := models.Event{
		Type:        models.EventNewRemark,
		GrievanceID: g.ID,
		Payload:     r,
		Sender:      string(actor.Role),
		Timestamp:   s.now(),
	}
	if err := s.publisher.Broadcast(ctx, g.ID, ev); err != nil {
		s.log.WithError(err).WithField("grievance_id", g.ID).Warn("remark broadcast failed")
	}
	return r, nil
}

// recipientFor routes a remark notification: a student's remark goes to the
// assignee, anyone else's to the student. Authors are never notified of their
// own remark.
func recipientFor(actor models.Actor, g *models.Grievance) (uint, bool) {
	if actor.Role == models.RoleStudent {
		if g.AssignedTo == nil || *g.AssignedTo == actor.UserID {
			return 0, false
		}
		return *g.AssignedTo, true
	}
	if g.StudentID == actor.UserID {
		return 0, false
	}
	return g.StudentID, true
}

// List returns the thread newest first, filtered for students.
func (s *Service) List(ctx context.Context, actor models.Actor, grievanceID uint) ([]models.Remark, error) {
	if _, err := s.grievances.Get(ctx, actor, grievanceID); err != nil {
		return nil, err
	}
	return s.store.ListRemarks(ctx, grievanceID, studentView(actor.Role))
}

func (s *Service) Count(ctx context.Context, actor models.Actor, grievanceID uint) (int64, error) {
	if _, err := s.grievances.Get(ctx, actor, grievanceID); err != nil {
		return 0, err
	}
	return s.store.CountRemarks(ctx, grievanceID, studentView(actor.Role))
}

// Latest returns the newest remark the actor can see, or NotFound.
func (s *Service) Latest(ctx context.Context, actor models.Actor, grievanceID uint) (*models.Remark, error) {
	if _, err := s.grievances.Get(ctx, actor, grievanceID); err != nil {
		return nil, err
	}
	r, err := s.store.LatestRemark(ctx, grievanceID, studentView(actor.Role))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("grievance %d has no remarks", grievanceID)
	}
	return r, err
}
