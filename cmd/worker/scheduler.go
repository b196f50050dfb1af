package main

import (
	"log"

	"github.com/hibiken/asynq"

	"waterstore-backend/internal/shared"
)

// asynqScheduler wraps asynq.Scheduler
type asynqScheduler struct {
	*asynq.Scheduler
}

// setupScheduler registers the periodic expiry sweeps and starts the
// scheduler.
func setupScheduler(cfg *Config) *asynqScheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		&asynq.SchedulerOpts{},
	)

	if _, err := scheduler.Register(cfg.SweepInterval, asynq.NewTask(shared.TypePromoExpireSweep, nil)); err != nil {
		log.Fatalf("[Scheduler] Failed to register promo sweep: %v", err)
	}
	if _, err := scheduler.Register(cfg.SweepInterval, asynq.NewTask(shared.TypeCampaignExpireSweep, nil)); err != nil {
		log.Fatalf("[Scheduler] Failed to register campaign sweep: %v", err)
	}

	go func() {
		log.Println("[Scheduler] Starting...")
		if err := scheduler.Run(); err != nil {
			log.Fatalf("[Scheduler] Failed: %v", err)
		}
	}()

	return &asynqScheduler{Scheduler: scheduler}
}

// Shutdown gracefully shuts down the scheduler
func (s *asynqScheduler) Shutdown() {
	log.Println("[Scheduler] Shutting down...")
	s.Scheduler.Shutdown()
	log.Println("[Scheduler] ✓ Stopped")
}
