/*
scheduler.go - Periodic audit scheduler

PURPOSE:
  Runs the auditor over each configured business profile on a fixed
  interval, logs any drift it finds and records the run in the profile's
  audit history. It never applies fixes; those stay a user decision made
  through POST /api/audit/fix.

DESIGN:
  - One background goroutine, ticker driven
  - Runs once immediately on Start
  - With no profiles configured, audits every profile that has records
  - A failing profile is logged and does not stop the others
  - Read-only deployments audit without recording runs

USAGE:
  scheduler := NewAuditScheduler(handler, []string{"default"})
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - audit/auditor.go: Run and Record
  - handlers.go: RunAudit / FixAudit endpoints
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/bookkeeper/audit"
	"github.com/warp/bookkeeper/generic"
	"go.uber.org/zap"
)

// TriggerScheduled marks runs recorded by the scheduler.
const TriggerScheduled = "scheduled"

// AuditScheduler audits profiles periodically.
type AuditScheduler struct {
	Handler       *Handler
	Profiles      []string
	CheckInterval time.Duration
	Enabled       bool
	Log           *zap.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAuditScheduler creates an enabled scheduler with a one hour interval.
func NewAuditScheduler(handler *Handler, profiles []string) *AuditScheduler {
	return &AuditScheduler{
		Handler:       handler,
		Profiles:      profiles,
		CheckInterval: time.Hour,
		Enabled:       true,
		Log:           handler.Log.Named("scheduler"),
	}
}

// Start begins the scheduler.
func (s *AuditScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Log.Info("disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run()

	s.Log.Info("started", zap.Duration("interval", s.CheckInterval), zap.Strings("profiles", s.Profiles))
}

// Stop stops the scheduler and waits for an in-flight pass to finish.
func (s *AuditScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.Log.Info("stopped")
}

func (s *AuditScheduler) run() {
	defer s.wg.Done()

	s.RunNow(context.Background())

	for {
		select {
		case <-s.ticker.C:
			s.RunNow(context.Background())
		case <-s.stop:
			return
		}
	}
}

// RunNow audits every configured profile once and returns the runs.
func (s *AuditScheduler) RunNow(ctx context.Context) []audit.Run {
	profiles, err := s.profiles(ctx)
	if err != nil {
		s.Log.Error("failed to list profiles", zap.Error(err))
		return nil
	}
	runs := make([]audit.Run, 0, len(profiles))
	for _, profile := range profiles {
		run, err := s.auditProfile(ctx, profile)
		if err != nil {
			s.Log.Error("audit failed", zap.String("profile", profile), zap.Error(err))
		}
		runs = append(runs, run)
	}
	return runs
}

// profiles returns the configured profiles, or every stored profile when
// none are configured.
func (s *AuditScheduler) profiles(ctx context.Context) ([]string, error) {
	if len(s.Profiles) > 0 {
		return s.Profiles, nil
	}
	lister, ok := s.Handler.Profiles.(generic.ProfileLister)
	if !ok {
		return []string{s.Handler.DefaultProfile}, nil
	}
	return lister.ListProfiles(ctx)
}

func (s *AuditScheduler) auditProfile(ctx context.Context, profile string) (audit.Run, error) {
	log := s.Log.With(zap.String("profile", profile))
	a := s.Handler.auditorFor(s.Handler.Profiles.ForProfile(profile), log)

	run := audit.Run{
		ID:        a.NewID(),
		Trigger:   TriggerScheduled,
		StartedAt: generic.At(a.Now()),
	}

	report, err := a.Run(ctx)
	run.FinishedAt = generic.At(a.Now())
	if err != nil {
		run.ErrorDetail = err.Error()
	} else {
		run.Found = len(report.Discrepancies)
		run.Remaining = run.Found
		if report.Clean() {
			log.Info("books are consistent", zap.Int("checked", report.Checked))
		} else {
			log.Warn("drift detected",
				zap.Int("discrepancies", run.Found),
				zap.Int("checked", report.Checked))
		}
	}

	if s.Handler.ReadOnly {
		return run, err
	}
	if recErr := a.Record(ctx, run); recErr != nil {
		log.Error("failed to record audit run", zap.Error(recErr))
	}
	return run, err
}
