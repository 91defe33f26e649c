// Package feedback records student ratings of resolved grievances.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"grievancedesk/backend/internal/apperr"
	"grievancedesk/backend/internal/config"
	"grievancedesk/backend/internal/logger"
	"grievancedesk/backend/internal/models"
	"grievancedesk/backend/internal/storage"

	"github.com/sirupsen/logrus"
)

type Store interface {
	CreateFeedback(ctx context.Context, f *models.Feedback) error
	ListFeedbackByGrievance(ctx context.Context, grievanceID uint) ([]models.Feedback, error)
	ListFeedbackBySubmitter(ctx context.Context, userID uint) ([]models.Feedback, error)
	AverageRating(ctx context.Context, grievanceID uint) (*float64, error)
}

// GrievanceReader returns a grievance if the actor may see it.
type GrievanceReader interface {
	Get(ctx context.Context, actor models.Actor, id uint) (*models.Grievance, error)
}

type Service struct {
	store      Store
	grievances GrievanceReader
	log        logrus.FieldLogger
}

func NewService(store Store, grievances GrievanceReader, log logrus.FieldLogger) *Service {
	return &Service{store: store, grievances: grievances, log: logger.Or(log).WithField("component", "feedback")}
}

type SubmitRequest struct {
	GrievanceID uint   `json:"grievanceId"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment"`
}

// Submit stores the student's single rating for a resolved grievance.
func (s *Service) Submit(ctx context.Context, actor models.Actor, req SubmitRequest) (*models.Feedback, error) {
	if req.Rating < config.MinRating || req.Rating > config.MaxRating {
		return nil, apperr.Invalid("rating must be between %d and %d", config.MinRating, config.MaxRating)
	}
	g, err := s.grievances.Get(ctx, actor, req.GrievanceID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleStudent || g.StudentID != actor.UserID {
		return nil, apperr.Forbidden("only the submitting student can rate grievance %s", g.Code)
	}
	if g.Status != models.StatusResolved {
		return nil, apperr.Invalid("feedback can only be submitted for resolved grievances")
	}

	f := &models.Feedback{
		GrievanceID: g.ID,
		SubmittedBy: actor.UserID,
		Rating:      req.Rating,
		Comment:     strings.TrimSpace(req.Comment),
	}
	err = s.store.CreateFeedback(ctx, f)
	if errors.Is(err, storage.ErrDuplicate) {
		return nil, apperr.Conflict("feedback already submitted for grievance %s", g.Code).Wrap(err)
	}
	if err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	s.log.WithFields(logrus.Fields{"grievance_id": g.ID, "rating": f.Rating}).Info("feedback submitted")
	return f, nil
}

// Average is nil when the grievance has no feedback.
func (s *Service) Average(ctx context.Context, actor models.Actor, grievanceID uint) (*float64, error) {
	if _, err := s.grievances.Get(ctx, actor, grievanceID); err != nil {
		return nil, err
	}
	return s.store.AverageRating(ctx, grievanceID)
}

func (s *Service) ListByGrievance(ctx context.Context, actor models.Actor, grievanceID uint) ([]models.Feedback, error) {
	if _, err := s.grievances.Get(ctx, actor, grievanceID); err != nil {
		return nil, err
	}
	return s.store.ListFeedbackByGrievance(ctx, grievanceID)
}

// MyHistory lists the actor's own feedback, newest first.
func (s *Service) MyHistory(ctx context.Context, actor models.Actor) ([]models.Feedback, error) {
	return s.store.ListFeedbackBySubmitter(ctx, actor.UserID)
}
