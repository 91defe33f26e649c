package storage

import (
	"context"

	"grievancedesk/backend/internal/models"

	"gorm.io/gorm"
)

// remarksQuery filters a grievance's remarks, restricting to what students may
// see when studentView is set.
func (s *Service) remarksQuery(ctx context.Context, grievanceID uint, studentView bool) *gorm.DB {
	q := s.db(ctx).Model(&models.Remark{}).Where("grievance_id = ?", grievanceID)
	if studentView {
		q = q.Where("(is_internal = ? OR user_type = ?)", false, models.RoleStudent)
	}
	return q
}

func (s *Service) CreateRemark(ctx context.Context, r *models.Remark) error {
	return translate(s.db(ctx).Create(r).Error)
}

// ListRemarks returns remarks newest first.
func (s *Service) ListRemarks(ctx context.Context, grievanceID uint, studentView bool) ([]models.Remark, error) {
	var out []models.Remark
	err := s.remarksQuery(ctx, grievanceID, studentView).
		Order("created_at desc, id desc").
		Find(&out).Error
	return out, translate(err)
}

func (s *Service) CountRemarks(ctx context.Context, grievanceID uint, studentView bool) (int64, error) {
	var n int64
	err := s.remarksQuery(ctx, grievanceID, studentView).Count(&n).Error
	return n, translate(err)
}

func (s *Service) LatestRemark(ctx context.Context, grievanceID uint, studentView bool) (*models.Remark, error) {
	var r models.Remark
	err := s.remarksQuery(ctx, grievanceID, studentView).
		Order("created_at desc, id desc").
		First(&r).Error
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}
