package provision

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// ScheduleConfig holds the cron specs for the periodic batches.
type ScheduleConfig struct {
	RecurringSyncSpec string
	CleanupSpec       string
	SnapshotSpec      string
}

// DefaultScheduleConfig runs the recurring sync and guest cleanup nightly
// and the usage snapshot on the first morning of each month.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		RecurringSyncSpec: "0 0 4 * * *",
		CleanupSpec:       "0 30 4 * * *",
		SnapshotSpec:      "0 0 5 1 * *",
	}
}

// Scheduler runs the provisioning batches on their cron schedules.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	config  ScheduleConfig
}

// NewScheduler creates a scheduler for the periodic provisioning batches.
func NewScheduler(service *Service, config ScheduleConfig) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		service: service,
		config:  config,
	}
}

// Start registers the batch jobs and begins the cron loop.
func (s *Scheduler) Start() error {
	log.Println("Starting provisioning scheduler...")

	if _, err := s.cron.AddFunc(s.config.RecurringSyncSpec, s.runRecurringSync); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.config.CleanupSpec, s.runCleanup); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.config.SnapshotSpec, s.runSnapshot); err != nil {
		return err
	}

	s.cron.Start()
	log.Println("Provisioning scheduler started")
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	log.Println("Stopping provisioning scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Provisioning scheduler stopped")
}

func (s *Scheduler) runRecurringSync() {
	if err := s.service.SyncRecurringAccess(context.Background()); err != nil {
		log.Printf("Recurring access sync failed: %v", err)
	}
}

func (s *Scheduler) runCleanup() {
	if err := s.service.CleanupExpiredGuests(context.Background()); err != nil {
		log.Printf("Expired guest cleanup failed: %v", err)
	}
}

func (s *Scheduler) runSnapshot() {
	if err := s.service.SnapshotUsage(context.Background()); err != nil {
		log.Printf("Usage snapshot failed: %v", err)
	}
}
