// Package scheduler runs the periodic notification retention sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"grievancedesk/backend/internal/config"
	"grievancedesk/backend/internal/logger"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Purger deletes notifications older than age.
type Purger interface {
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

type RetentionScheduler struct {
	cronEngine *cron.Cron
	purger     Purger
	spec       string
	retention  time.Duration
	log        logrus.FieldLogger
}

func NewRetentionScheduler(purger Purger, spec string, retentionDays int, log logrus.FieldLogger) *RetentionScheduler {
	return &RetentionScheduler{
		cronEngine: cron.New(cron.WithLocation(time.Local)),
		purger:     purger,
		spec:       spec,
		retention:  time.Duration(retentionDays) * 24 * time.Hour,
		log:        logger.Or(log).WithField("component", "scheduler"),
	}
}

// Start registers the sweep and starts the cron engine.
func (s *RetentionScheduler) Start() error {
	if _, err := s.cronEngine.AddFunc(s.spec, s.RunPurge); err != nil {
		return fmt.Errorf("add purge job %q: %w", s.spec, err)
	}
	s.cronEngine.Start()
	s.log.WithFields(logrus.Fields{"spec": s.spec, "retention": s.retention}).Info("retention scheduler started")
	return nil
}

// RunPurge performs one sweep.
func (s *RetentionScheduler) RunPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), config.PurgeJobTimeout)
	defer cancel()

	n, err := s.purger.PurgeOlderThan(ctx, s.retention)
	if err != nil {
		s.log.WithError(err).Error("notification purge failed")
		return
	}
	s.log.WithField("deleted", n).Info("notification purge finished")
}

// Stop waits for a running sweep to finish.
func (s *RetentionScheduler) Stop() {
	<-s.cronEngine.Stop().Done()
	s.log.Info("retention scheduler stopped")
}
