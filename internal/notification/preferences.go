package notification

import (
	"context"

	"grievancedesk/backend/internal/models"
)

// PreferenceUpdate changes only the switches that are set.
type PreferenceUpdate struct {
	PushNotifications  *bool `json:"pushNotifications"`
	EmailNotifications *bool `json:"emailNotifications"`
	StatusUpdates      *bool `json:"statusUpdates"`
	NewRemarks         *bool `json:"newRemarks"`
	GrievanceResolved  *bool `json:"grievanceResolved"`
	FeedbackReminders  *bool `json:"feedbackReminders"`
}

func (u PreferenceUpdate) apply(p *models.NotificationPreference) {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.PushNotifications, u.PushNotifications)
	set(&p.EmailNotifications, u.EmailNotifications)
	set(&p.StatusUpdates, u.StatusUpdates)
	set(&p.NewRemarks, u.NewRemarks)
	set(&p.GrievanceResolved, u.GrievanceResolved)
	set(&p.FeedbackReminders, u.FeedbackReminders)
}

// Preferences returns the actor's switches, creating the defaults on first use.
func (s *Service) Preferences(ctx context.Context, actor models.Actor) (*models.NotificationPreference, error) {
	return s.store.GetOrCreatePreference(ctx, actor.UserID)
}

func (s *Service) UpdatePreferences(ctx context.Context, actor models.Actor, upd PreferenceUpdate) (*models.NotificationPreference, error) {
	pref, err := s.store.GetOrCreatePreference(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	upd.apply(pref)
	if err := s.store.SavePreference(ctx, pref); err != nil {
		return nil, err
	}
	return pref, nil
}
