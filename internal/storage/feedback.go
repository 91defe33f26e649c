package storage

import (
	"context"

	"grievancedesk/backend/internal/models"
)

// CreateFeedback relies on the (grievance_id, submitted_by) unique index;
// a second submission returns ErrDuplicate.
func (s *Service) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	return translate(s.db(ctx).Create(f).Error)
}

func (s *Service) ListFeedbackByGrievance(ctx context.Context, grievanceID uint) ([]models.Feedback, error) {
	var out []models.Feedback
	err := s.db(ctx).Where("grievance_id = ?", grievanceID).Order("created_at desc").Find(&out).Error
	return out, translate(err)
}

func (s *Service) ListFeedbackBySubmitter(ctx context.Context, userID uint) ([]models.Feedback, error) {
	var out []models.Feedback
	err := s.db(ctx).Where("submitted_by = ?", userID).Order("created_at desc").Find(&out).Error
	return out, translate(err)
}

// AverageRating returns nil when the grievance has no feedback.
func (s *Service) AverageRating(ctx context.Context, grievanceID uint) (*float64, error) {
	var avg *float64
	row := s.db(ctx).Model(&models.Feedback{}).
		Select("AVG(rating)::float8").
		Where("grievance_id = ?", grievanceID).
		Row()
	if err := row.Scan(&avg); err != nil {
		return nil, translate(err)
	}
	return avg, nil
}
