package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"grievancedesk/backend/internal/apperr"
	"grievancedesk/backend/internal/models"
	"grievancedesk/backend/internal/storage"

	"github.com/sirupsen/logrus"
)

// Claim assigns a submitted grievance to the calling admin.
func (s *Service) Claim(ctx context.Context, actor models.Actor, id uint) (*models.Grievance, error) {
	admin, g, err := s.admin(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if g.Status != models.StatusSubmitted {
		return nil, apperr.Invalid("grievance %s is already assigned or processed", g.Code)
	}

	from, version := g.Status, g.Version
	g.AssignedTo = &admin.ID
	g.AssignedAdminID = &admin.ID
	g.TransitionTo(models.StatusAssignedToAdmin, admin.ID, s.now())

	entry := models.NewTimelineEntry(g, from, "claim", "Claimed by "+admin.FullName(), &admin.ID)
	if err := s.commit(ctx, g, version, entry); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"grievance_id": g.ID, "admin_id": admin.ID}).Info("grievance claimed")

	s.notify(ctx, admin.ID, models.NotificationGrievanceAssigned, g,
		"Grievance Assigned to You",
		fmt.Sprintf("You have been assigned grievance #%s: '%s'", g.Code, g.Title))
	s.broadcast(ctx, g, admin.FullName(), map[string]any{
		"oldStatus": from,
		"newStatus": g.Status,
		"updatedBy": admin.ID,
	})
	return g, nil
}

// AssignToStaff hands a grievance to a staff member of the admin's department.
func (s *Service) AssignToStaff(ctx context.Context, actor models.Actor, id, staffID uint, notes string) (*models.Grievance, error) {
	admin, g, err := s.admin(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if g.AssignedAdminID != nil && *g.AssignedAdminID != admin.ID {
		return nil, apperr.Forbidden("grievance %s is handled by another admin", g.Code)
	}

	staff, err := s.store.GetUserByID(ctx, staffID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("staff member %d not found", staffID)
	}
	if err != nil {
		return nil, err
	}
	if staff.Role != models.RoleStaff {
		return nil, apperr.Invalid("user %d is not a staff member", staffID)
	}
	if !staff.InDepartment(g.DepartmentID) {
		return nil, apperr.Invalid("staff member %d is not in the grievance's department", staffID)
	}

	from, version := g.Status, g.Version
	g.AssignedTo = &staff.ID
	g.AssignedAdminID = &admin.ID
	g.TransitionTo(models.StatusInProgress, admin.ID, s.now())
	if notes = strings.TrimSpace(notes); notes != "" {
		g.AppendNotes("Assignment Notes: " + notes)
	}

	note := "Assigned to " + staff.FullName()
	if notes != "" {
		note += ": " + notes
	}
	entry := models.NewTimelineEntry(g, from, "assign", note, &admin.ID)
	if err := s.commit(ctx, g, version, entry); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"grievance_id": g.ID, "admin_id": admin.ID, "staff_id": staff.ID}).Info("grievance assigned to staff")

	s.notify(ctx, staff.ID, models.NotificationGrievanceAssigned, g,
		"New Grievance Assignment",
		fmt.Sprintf("You have been assigned grievance #%s: '%s' by admin", g.Code, g.Title))
	s.broadcast(ctx, g, admin.FullName(), map[string]any{
		"oldStatus": from,
		"newStatus": g.Status,
		"updatedBy": admin.ID,
	})
	return g, nil
}

// UpdateStatus lets the assignee move the grievance to any staff-settable status.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Actor, id uint, status, note string) (*models.Grievance, error) {
	user, err := s.actor(ctx, actor)
	if err != nil {
		return nil, err
	}
	g, err := s.grievance(ctx, id)
	if err != nil {
		return nil, err
	}
	if !g.IsAssignee(user.ID) {
		return nil, apperr.Forbidden("grievance %s is not assigned to you", g.Code)
	}
	next, err := models.ParseStatus(status)
	if err != nil || !next.StaffSettable() {
		return nil, apperr.Invalid("invalid status %q", status)
	}

	note = strings.TrimSpace(note)
	from, version := g.Status, g.Version
	g.TransitionTo(next, user.ID, s.now())
	switch {
	case next == models.StatusResolved && note != "":
		g.AppendNotes("Resolution Notes: " + note)
	case next == models.StatusInProgress && note != "":
		g.AppendNotes("Progress Update: " + note)
	}

	timelineNote := note
	if timelineNote == "" {
		timelineNote = "Status updated to " + string(next)
	}
	entry := models.NewTimelineEntry(g, from, "status_update", timelineNote, &user.ID)
	if err := s.commit(ctx, g, version, entry); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"grievance_id": g.ID,
		"from":         from,
		"to":           next,
		"user_id":      user.ID,
	}).Info("grievance status updated")

	s.broadcast(ctx, g, user.FullName(), map[string]any{
		"oldStatus": from,
		"newStatus": next,
		"note":      note,
		"updatedBy": user.ID,
	})

	message := fmt.Sprintf("Your grievance '%s' status changed from %s to %s", g.Title, from, next)
	if note != "" {
		message += ". Note: " + note
	}
	s.notify(ctx, g.StudentID, models.NotificationStatusUpdate, g, "Status Updated", message)
	if next == models.StatusResolved {
		s.notify(ctx, g.StudentID, models.NotificationFeedbackRequest, g, "Feedback Request",
			fmt.Sprintf("Your grievance '%s' has been resolved. Please share your feedback to help us improve.", g.Title))
	}
	return g, nil
}

// AddNote appends a signed, timestamped line to the resolution notes.
func (s *Service) AddNote(ctx context.Context, actor models.Actor, id uint, notes string) (*models.Grievance, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, apperr.Invalid("notes are required")
	}
	user, err := s.actor(ctx, actor)
	if err != nil {
		return nil, err
	}
	g, err := s.grievance(ctx, id)
	if err != nil {
		return nil, err
	}
	if !g.IsAssignee(user.ID) {
		return nil, apperr.Forbidden("grievance %s is not assigned to you", g.Code)
	}

	now := s.now()
	version := g.Version
	g.AppendNotes(fmt.Sprintf("[%s] %s: %s", now.Format(time.RFC3339), user.FirstName, notes))
	g.UpdatedAt = now
	if err := s.commit(ctx, g, version, nil); err != nil {
		return nil, err
	}
	return g, nil
}

// Reject closes a grievance without resolution.
func (s *Service) Reject(ctx context.Context, actor models.Actor, id uint, reason string) (*models.Grievance, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Invalid("a rejection reason is required")
	}
	admin, g, err := s.admin(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	from, version := g.Status, g.Version
	g.AssignedAdminID = &admin.ID
	g.TransitionTo(models.StatusRejected, admin.ID, s.now())
	g.ResolutionNotes = "Rejected by admin: " + reason

	entry := models.NewTimelineEntry(g, from, "reject", reason, &admin.ID)
	if err := s.commit(ctx, g, version, entry); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"grievance_id": g.ID, "admin_id": admin.ID}).Info("grievance rejected")

	s.notify(ctx, g.StudentID, models.NotificationStatusUpdate, g, "Status Updated",
		fmt.Sprintf("Your grievance '%s' status changed from %s to %s. Note: %s", g.Title, from, g.Status, reason))
	s.broadcast(ctx, g, admin.FullName(), map[string]any{
		"oldStatus": from,
		"newStatus": g.Status,
		"note":      reason,
		"updatedBy": admin.ID,
	})
	return g, nil
}
