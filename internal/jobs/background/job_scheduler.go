package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fleetledger/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

const reconcileJobName = "stock-reconciliation"

// JobScheduler runs the periodic reconciliation sweep.
type JobScheduler struct {
	scheduler gocron.Scheduler
	recon     services.ReconciliationService
	reports   services.ReportStore
	interval  time.Duration
	logger    zerolog.Logger
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

// NewJobScheduler creates the scheduler. reports may be nil, in which case
// reports are only logged.
func NewJobScheduler(recon services.ReconciliationService, reports services.ReportStore, interval time.Duration, logger zerolog.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if interval <= 0 {
		interval = time.Hour
	}

	js := &JobScheduler{
		scheduler: scheduler,
		recon:     recon,
		reports:   reports,
		interval:  interval,
		logger:    logger.With().Str("component", "jobs").Logger(),
		jobs:      make(map[string]gocron.Job),
	}
	if err := js.registerJobs(); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) Start() {
	js.logger.Info().Dur("interval", js.interval).Msg("starting background job scheduler")
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	js.logger.Info().Msg("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() error {
	job, err := js.scheduler.NewJob(
		gocron.DurationJob(js.interval),
		gocron.NewTask(js.reconcile, context.Background()),
		gocron.WithName(reconcileJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("create reconciliation job: %w", err)
	}

	js.mu.Lock()
	js.jobs[reconcileJobName] = job
	js.mu.Unlock()
	return nil
}

// NextRun reports when the named job fires next.
func (js *JobScheduler) NextRun(name string) (time.Time, error) {
	js.mu.RLock()
	job, ok := js.jobs[name]
	js.mu.RUnlock()
	if !ok {
		return time.Time{}, fmt.Errorf("job %q not registered", name)
	}
	return job.NextRun()
}

// SweepResult summarizes one reconciliation pass.
type SweepResult struct {
	Items         int
	Discrepancies int
	Archived      int
	Failed        int
}

func (js *JobScheduler) reconcile(ctx context.Context) {
	if _, err := js.RunOnce(ctx); err != nil {
		js.logger.Error().Err(err).Msg("reconciliation sweep failed")
	}
}

// RunOnce reconciles every item with tracked units. A failure on one item
// is logged and the sweep moves on.
func (js *JobScheduler) RunOnce(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	var res SweepResult

	items, err := js.recon.TrackedItems(ctx)
	if err != nil {
		return res, fmt.Errorf("list tracked items: %w", err)
	}

	for _, itemID := range items {
		res.Items++
		report, err := js.recon.Report(ctx, itemID)
		if err != nil {
			res.Failed++
			js.logger.Warn().Err(err).Str("item_id", itemID.String()).Msg("reconcile item")
			continue
		}
		res.Discrepancies += report.Discrepancies

		if js.reports == nil {
			continue
		}
		key, err := js.reports.PutReport(ctx, report)
		if err != nil {
			res.Failed++
			js.logger.Warn().Err(err).Str("item_id", itemID.String()).Msg("archive reconciliation report")
			continue
		}
		res.Archived++
		js.logger.Info().Str("item_id", itemID.String()).Str("key", key).Msg("archived reconciliation report")
	}

	js.logger.Info().
		Int("items", res.Items).
		Int("discrepancies", res.Discrepancies).
		Int("archived", res.Archived).
		Int("failed", res.Failed).
		Dur("duration", time.Since(start)).
		Msg("reconciliation sweep finished")
	return res, nil
}
