// Package dashboard computes the per-role summary figures shown on the
// student, staff and admin home screens.
package dashboard

import (
	"context"
	"errors"
	"time"

	"grievancedesk/backend/internal/apperr"
	"grievancedesk/backend/internal/config"
	"grievancedesk/backend/internal/models"
	"grievancedesk/backend/internal/storage"
)

type Store interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	ListStaff(ctx context.Context, departmentID uint) ([]models.User, error)
	ListGrievances(ctx context.Context, scope storage.GrievanceScope) ([]models.Grievance, error)
	CountGrievancesByStatus(ctx context.Context, scope storage.GrievanceScope) (map[models.Status]int64, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

type StudentStats struct {
	TotalGrievances      int64 `json:"totalGrievances"`
	SubmittedGrievances  int64 `json:"submittedGrievances"`
	InProgressGrievances int64 `json:"inProgressGrievances"`
	ResolvedGrievances   int64 `json:"resolvedGrievances"`
	RejectedGrievances   int64 `json:"rejectedGrievances"`
}

type StaffStats struct {
	TotalAssigned     int64   `json:"totalAssigned"`
	InProgress        int64   `json:"inProgress"`
	Resolved          int64   `json:"resolved"`
	PendingReview     int64   `json:"pendingReview"`
	AvgResolutionTime int64   `json:"avgResolutionTime"`
	ResolutionRate    float64 `json:"resolutionRate"`
	RecentActivity    int64   `json:"recentActivity"`
}

type DepartmentStats struct {
	TotalGrievances   int64 `json:"totalGrievances"`
	NewGrievances     int64 `json:"newGrievances"`
	UnderReview       int64 `json:"underReview"`
	AssignedToAdmin   int64 `json:"assignedToAdmin"`
	InProgress        int64 `json:"inProgress"`
	Resolved          int64 `json:"resolved"`
	Rejected          int64 `json:"rejected"`
	StaffCount        int64 `json:"staffCount"`
	AvgResolutionTime int64 `json:"avgResolutionTime"`
}

type StaffPerformance struct {
	StaffID            uint    `json:"staffId"`
	StaffName          string  `json:"staffName"`
	StaffEmail         string  `json:"staffEmail"`
	AssignedGrievances int64   `json:"assignedGrievances"`
	ResolvedGrievances int64   `json:"resolvedGrievances"`
	PendingGrievances  int64   `json:"pendingGrievances"`
	ResolutionRate     float64 `json:"resolutionRate"`
	AvgResolutionTime  int64   `json:"avgResolutionTime"`
}

func total(counts map[models.Status]int64) int64 {
	var n int64
	for _, c := range counts {
		n += c
	}
	return n
}

// avgResolutionHours is the mean of whole hours between creation and
// resolution over resolved grievances, 0 when there are none.
func avgResolutionHours(gs []models.Grievance) int64 {
	var hours, resolved int64
	for _, g := range gs {
		if g.Status != models.StatusResolved {
			continue
		}
		resolved++
		if g.ResolvedAt != nil {
			hours += int64(g.ResolvedAt.Sub(g.CreatedAt) / time.Hour)
		}
	}
	if resolved == 0 {
		return 0
	}
	return hours / resolved
}

func rate(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func (s *Service) Student(ctx context.Context, actor models.Actor) (*StudentStats, error) {
	if actor.Role != models.RoleStudent {
		return nil, apperr.Forbidden("student role required")
	}
	counts, err := s.store.CountGrievancesByStatus(ctx, storage.GrievanceScope{StudentID: &actor.UserID})
	if err != nil {
		return nil, err
	}
	return &StudentStats{
		TotalGrievances:      total(counts),
		SubmittedGrievances:  counts[models.StatusSubmitted],
		InProgressGrievances: counts[models.StatusInProgress],
		ResolvedGrievances:   counts[models.StatusResolved],
		RejectedGrievances:   counts[models.StatusRejected],
	}, nil
}

// StudentGrievances lists the student's own grievances, newest first.
func (s *Service) StudentGrievances(ctx context.Context, actor models.Actor) ([]models.Grievance, error) {
	if actor.Role != models.RoleStudent {
		return nil, apperr.Forbidden("student role required")
	}
	return s.store.ListGrievances(ctx, storage.GrievanceScope{StudentID: &actor.UserID})
}

func (s *Service) Staff(ctx context.Context, actor models.Actor) (*StaffStats, error) {
	gs, err := s.StaffGrievances(ctx, actor)
	if err != nil {
		return nil, err
	}

	stats := &StaffStats{TotalAssigned: int64(len(gs))}
	since := s.now().Add(-config.RecentActivityWindow)
	for _, g := range gs {
		switch g.Status {
		case models.StatusInProgress:
			stats.InProgress++
		case models.StatusResolved:
			stats.Resolved++
		case models.StatusUnderReview:
			stats.PendingReview++
		}
		if g.UpdatedAt.After(since) {
			stats.RecentActivity++
		}
	}
	stats.AvgResolutionTime = avgResolutionHours(gs)
	stats.ResolutionRate = rate(stats.Resolved, stats.TotalAssigned)
	return stats, nil
}

// StaffGrievances lists what is assigned to the calling staff member.
func (s *Service) StaffGrievances(ctx context.Context, actor models.Actor) ([]models.Grievance, error) {
	if actor.Role != models.RoleStaff {
		return nil, apperr.Forbidden("staff role required")
	}
	return s.store.ListGrievances(ctx, storage.GrievanceScope{AssignedTo: &actor.UserID})
}

// department resolves the admin's department.
func (s *Service) department(ctx context.Context, actor models.Actor) (uint, error) {
	if actor.Role != models.RoleAdmin {
		return 0, apperr.Forbidden("admin role required")
	}
	u, err := s.store.GetUserByID(ctx, actor.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, apperr.NotFound("user %d not found", actor.UserID)
	}
	if err != nil {
		return 0, err
	}
	if u.DepartmentID == nil {
		return 0, apperr.Forbidden("admin %d has no department", actor.UserID)
	}
	return *u.DepartmentID, nil
}

func (s *Service) Department(ctx context.Context, actor models.Actor) (*DepartmentStats, error) {
	dept, err := s.department(ctx, actor)
	if err != nil {
		return nil, err
	}
	scope := storage.GrievanceScope{DepartmentID: &dept}
	counts, err := s.store.CountGrievancesByStatus(ctx, scope)
	if err != nil {
		return nil, err
	}
	staff, err := s.store.ListStaff(ctx, dept)
	if err != nil {
		return nil, err
	}
	gs, err := s.store.ListGrievances(ctx, scope)
	if err != nil {
		return nil, err
	}

	return &DepartmentStats{
		TotalGrievances:   total(counts),
		NewGrievances:     counts[models.StatusSubmitted],
		UnderReview:       counts[models.StatusUnderReview],
		AssignedToAdmin:   counts[models.StatusAssignedToAdmin],
		InProgress:        counts[models.StatusInProgress],
		Resolved:          counts[models.StatusResolved],
		Rejected:          counts[models.StatusRejected],
		StaffCount:        int64(len(staff)),
		AvgResolutionTime: avgResolutionHours(gs),
	}, nil
}

// DepartmentGrievances lists every grievance in the admin's department.
func (s *Service) DepartmentGrievances(ctx context.Context, actor models.Actor) ([]models.Grievance, error) {
	dept, err := s.department(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.store.ListGrievances(ctx, storage.GrievanceScope{DepartmentID: &dept})
}

// DepartmentStaff lists the active staff the admin can assign to.
func (s *Service) DepartmentStaff(ctx context.Context, actor models.Actor) ([]models.User, error) {
	dept, err := s.department(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.store.ListStaff(ctx, dept)
}

func (s *Service) StaffPerformance(ctx context.Context, actor models.Actor) ([]StaffPerformance, error) {
	dept, err := s.department(ctx, actor)
	if err != nil {
		return nil, err
	}
	staff, err := s.store.ListStaff(ctx, dept)
	if err != nil {
		return nil, err
	}

	out := make([]StaffPerformance, 0, len(staff))
	for _, member := range staff {
		id := member.ID
		gs, err := s.store.ListGrievances(ctx, storage.GrievanceScope{DepartmentID: &dept, AssignedTo: &id})
		if err != nil {
			return nil, err
		}
		p := StaffPerformance{
			StaffID:            member.ID,
			StaffName:          member.FullName(),
			StaffEmail:         member.Email,
			AssignedGrievances: int64(len(gs)),
		}
		for _, g := range gs {
			switch g.Status {
			case models.StatusResolved:
				p.ResolvedGrievances++
			case models.StatusRejected:
			default:
				p.PendingGrievances++
			}
		}
		p.ResolutionRate = rate(p.ResolvedGrievances, p.AssignedGrievances)
		p.AvgResolutionTime = avgResolutionHours(gs)
		out = append(out, p)
	}
	return out, nil
}
