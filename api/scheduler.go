/*
scheduler.go - Automated session pre-generation

PURPOSE:
  Keeps the fiscal-session table ahead of the calendar. On startup and
  on a cron schedule, every quarter from the configured seed date
  through the current one is ensured to exist, so dashboards never wait
  on a lazy first-touch insert and quarter rollover needs no manual
  step.

  Ensuring is idempotent (get-or-create on the unique session name), so
  running the job repeatedly, or on several instances at once, is safe.

CONFIGURATION:
  - SeedFrom:  Earliest quarter to backfill (default 2024-01-01)
  - CronSpec:  Check schedule (default "0 6 * * *", daily at 06:00)

USAGE:
  scheduler := NewSessionScheduler(service, seedFrom, spec, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - tally/service.go: SeedSessions / ResolveSessionForDate
*/
package api

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/lariv/tally-engine/tally"
)

// SessionScheduler ensures fiscal sessions exist ahead of use.
type SessionScheduler struct {
	Service  *tally.Service
	SeedFrom tally.Date
	CronSpec string
	Log      *logrus.Logger

	cron *cron.Cron
}

// NewSessionScheduler creates a scheduler over the given service.
func NewSessionScheduler(service *tally.Service, seedFrom tally.Date, cronSpec string, log *logrus.Logger) *SessionScheduler {
	return &SessionScheduler{
		Service:  service,
		SeedFrom: seedFrom,
		CronSpec: cronSpec,
		Log:      log,
	}
}

// Start runs one immediate seeding pass and schedules the recurring one.
func (s *SessionScheduler) Start() error {
	s.seed()

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.CronSpec, s.seed); err != nil {
		return err
	}
	s.cron.Start()

	s.Log.WithField("cron", s.CronSpec).Info("session scheduler started")
	return nil
}

// Stop halts the recurring job. A seeding pass already running is
// allowed to finish.
func (s *SessionScheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		s.Log.Info("session scheduler stopped")
	}
}

func (s *SessionScheduler) seed() {
	ensured, err := s.Service.SeedSessions(context.Background(), s.SeedFrom, tally.Today())
	if err != nil {
		s.Log.WithError(err).Error("session seeding failed")
		return
	}
	s.Log.WithField("quarters", ensured).Debug("session seeding pass complete")
}
