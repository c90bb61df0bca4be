package jobs

import (
	"context"
	"time"

	"team-match-backend/internal/cache"
	apperrors "team-match-backend/internal/errors"
	"team-match-backend/internal/lock"
	"team-match-backend/internal/logger"
	"team-match-backend/internal/service"

	"github.com/go-co-op/gocron/v2"
)

// Runner owns the background schedule: the listing precache and the expired
// request sweep. Each run takes a cluster-wide lease first, so with several
// instances deployed exactly one does the work.
type Runner struct {
	scheduler gocron.Scheduler
	recommend *service.RecommendService
	requests  *service.JoinRequestService
	locks     lock.Service
	log       *logger.Logger

	precacheCron  string
	sweepInterval time.Duration
}

// NewRunner creates a runner with its own scheduler
func NewRunner(recommend *service.RecommendService, requests *service.JoinRequestService, locks lock.Service, precacheCron string, sweepInterval time.Duration) (*Runner, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Runner{
		scheduler:     scheduler,
		recommend:     recommend,
		requests:      requests,
		locks:         locks,
		log:           logger.New().WithField("component", "jobs"),
		precacheCron:  precacheCron,
		sweepInterval: sweepInterval,
	}, nil
}

// Start registers the jobs and starts the scheduler
func (r *Runner) Start() error {
	if _, err := r.scheduler.NewJob(
		gocron.CronJob(r.precacheCron, false),
		gocron.NewTask(r.runPrecache),
	); err != nil {
		return err
	}

	if _, err := r.scheduler.NewJob(
		gocron.DurationJob(r.sweepInterval),
		gocron.NewTask(r.runSweep),
	); err != nil {
		return err
	}

	r.scheduler.Start()
	r.log.Info("background jobs started")
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs
func (r *Runner) Stop() {
	if err := r.scheduler.Shutdown(); err != nil {
		r.log.Warnf("scheduler shutdown failed: %v", err)
	}
}

// runPrecache rebuilds the hot and newest listings for every precomputed
// page size so first readers after expiry do not all hit the database.
func (r *Runner) runPrecache() {
	ctx := context.Background()

	lease, err := r.locks.TryAcquire(ctx, cache.LeaseKey("job:precache"))
	if err != nil {
		if apperrors.IsTooFrequent(err) {
			r.log.Debug("precache already running elsewhere")
		} else {
			r.log.Warnf("precache lease failed: %v", err)
		}
		return
	}
	defer lease.Release(ctx)

	// Drop the current listings so the read-through path below recomputes
	// them instead of returning what is already cached.
	for _, limit := range cache.ListingLimits {
		r.recommend.DropListings(ctx, limit)
	}

	for _, limit := range cache.ListingLimits {
		if _, err := r.recommend.HotTeams(ctx, limit); err != nil {
			r.log.WithField("limit", limit).Warnf("precache hot teams failed: %v", err)
		}
		if _, err := r.recommend.NewTeams(ctx, limit); err != nil {
			r.log.WithField("limit", limit).Warnf("precache new teams failed: %v", err)
		}
	}
	r.log.Info("listing precache complete")
}

// runSweep persists the expiry of pending requests past their deadline
func (r *Runner) runSweep() {
	ctx := context.Background()

	lease, err := r.locks.TryAcquire(ctx, cache.LeaseKey("job:sweep"))
	if err != nil {
		if apperrors.IsTooFrequent(err) {
			r.log.Debug("sweep already running elsewhere")
		} else {
			r.log.Warnf("sweep lease failed: %v", err)
		}
		return
	}
	defer lease.Release(ctx)

	swept, err := r.requests.SweepExpired(ctx, 500)
	if err != nil {
		r.log.Warnf("request sweep failed: %v", err)
		return
	}
	if swept > 0 {
		r.log.WithField("count", swept).Info("expired requests swept")
	}
}
