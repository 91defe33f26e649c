package storage

import (
	"context"

	"grievancedesk/backend/internal/models"
)

func (s *Service) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db(ctx).Create(u).Error)
}

// UpdateUser saves role, department, name and Telegram binding.
func (s *Service) UpdateUser(ctx context.Context, u *models.User) error {
	return translate(s.db(ctx).Save(u).Error)
}

func (s *Service) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// ListStaff returns active staff members of a department ordered by id.
func (s *Service) ListStaff(ctx context.Context, departmentID uint) ([]models.User, error) {
	var staff []models.User
	err := s.db(ctx).
		Where("department_id = ? AND role = ? AND is_active = ?", departmentID, models.RoleStaff, true).
		Order("id asc").
		Find(&staff).Error
	return staff, translate(err)
}

func (s *Service) CreateDepartment(ctx context.Context, d *models.Department) error {
	return translate(s.db(ctx).Create(d).Error)
}

func (s *Service) GetDepartment(ctx context.Context, id uint) (*models.Department, error) {
	var d models.Department
	if err := s.db(ctx).First(&d, id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *Service) CreateCategory(ctx context.Context, c *models.Category) error {
	return translate(s.db(ctx).Create(c).Error)
}

func (s *Service) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := s.db(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}
