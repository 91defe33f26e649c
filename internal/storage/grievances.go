package storage

import (
	"context"
	"errors"
	"time"

	"grievancedesk/backend/internal/models"

	"gorm.io/gorm"
)

// codeRetries bounds how often a colliding GRV code is regenerated.
const codeRetries = 3

// GrievanceScope narrows grievance queries. Nil fields are ignored.
type GrievanceScope struct {
	DepartmentID *uint
	AssignedTo   *uint
	StudentID    *uint
}

func (sc GrievanceScope) apply(q *gorm.DB) *gorm.DB {
	if sc.DepartmentID != nil {
		q = q.Where("department_id = ?", *sc.DepartmentID)
	}
	if sc.AssignedTo != nil {
		q = q.Where("assigned_to = ?", *sc.AssignedTo)
	}
	if sc.StudentID != nil {
		q = q.Where("student_id = ?", *sc.StudentID)
	}
	return q
}

// CreateGrievance inserts the grievance and its first timeline entry in one
// transaction. Two grievances created in the same millisecond would share a
// code; the insert is retried with a fresh one.
func (s *Service) CreateGrievance(ctx context.Context, g *models.Grievance, entry *models.TimelineEntry) error {
	var err error
	for attempt := 0; attempt < codeRetries; attempt++ {
		err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(g).Error; err != nil {
				return err
			}
			if entry != nil {
				entry.GrievanceID = g.ID
				if err := tx.Create(entry).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if !isUniqueViolation(err) {
			return translate(err)
		}
		g.ID = 0
		g.Code = ""
		time.Sleep(time.Millisecond)
	}
	return translate(err)
}

func (s *Service) GetGrievance(ctx context.Context, id uint) (*models.Grievance, error) {
	var g models.Grievance
	if err := s.db(ctx).First(&g, id).Error; err != nil {
		return nil, translate(err)
	}
	return &g, nil
}

// ApplyTransition writes the mutable columns of g only if the stored version
// still equals expectedVersion, and appends entry in the same transaction.
// ErrStaleWrite means another writer got there first.
func (s *Service) ApplyTransition(ctx context.Context, g *models.Grievance, expectedVersion int, entry *models.TimelineEntry) error {
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Grievance{}).
			Where("id = ? AND version = ?", g.ID, expectedVersion).
			Updates(map[string]any{
				"status":            g.Status,
				"assigned_to":       g.AssignedTo,
				"assigned_admin_id": g.AssignedAdminID,
				"resolved_by":       g.ResolvedBy,
				"resolved_at":       g.ResolvedAt,
				"resolution_notes":  g.ResolutionNotes,
				"updated_at":        g.UpdatedAt,
				"version":           gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleWrite
		}
		if entry == nil {
			return nil
		}
		entry.GrievanceID = g.ID
		return tx.Create(entry).Error
	})
	if errors.Is(err, ErrStaleWrite) {
		return err
	}
	if err != nil {
		return translate(err)
	}
	g.Version = expectedVersion + 1
	return nil
}

// ListGrievances returns grievances in scope, newest first.
func (s *Service) ListGrievances(ctx context.Context, scope GrievanceScope) ([]models.Grievance, error) {
	var out []models.Grievance
	err := scope.apply(s.db(ctx).Model(&models.Grievance{})).
		Order("created_at desc").
		Find(&out).Error
	return out, translate(err)
}

func (s *Service) CountGrievancesByStatus(ctx context.Context, scope GrievanceScope) (map[models.Status]int64, error) {
	var rows []struct {
		Status models.Status
		Count  int64
	}
	err := scope.apply(s.db(ctx).Model(&models.Grievance{})).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	counts := make(map[models.Status]int64, len(models.AllStatuses))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// ListTimeline returns entries oldest first.
func (s *Service) ListTimeline(ctx context.Context, grievanceID uint) ([]models.TimelineEntry, error) {
	var entries []models.TimelineEntry
	err := s.db(ctx).
		Where("grievance_id = ?", grievanceID).
		Order("created_at asc, id asc").
		Find(&entries).Error
	return entries, translate(err)
}

func (s *Service) LatestTimelineEntry(ctx context.Context, grievanceID uint) (*models.TimelineEntry, error) {
	var e models.TimelineEntry
	err := s.db(ctx).
		Where("grievance_id = ?", grievanceID).
		Order("created_at desc, id desc").
		First(&e).Error
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}
