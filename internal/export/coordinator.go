package export

import (
	"context"
	"log/slog"
	"sync"

	"bilicache/internal/config"
	"bilicache/internal/logging"
	"bilicache/internal/queue"
	"bilicache/internal/services"
)

// Result reports the outcome of one job as it finishes.
type Result struct {
	Job *queue.Job
	Err error
}

// Summary totals a finished batch.
type Summary struct {
	BatchID   string
	Total     int
	Completed int
	Failed    int
	Skipped   int
}

// Coordinator drives a planned batch to completion: it persists job state
// transitions, runs remuxes on a bounded worker pool and reports results as
// they land. One failing job never stops the rest of the batch.
type Coordinator struct {
	cfg     *config.Config
	store   *queue.Store
	remuxer *Remuxer
	logger  *slog.Logger
}

// NewCoordinator wires a coordinator.
func NewCoordinator(cfg *config.Config, store *queue.Store, remuxer *Remuxer, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		cfg:     cfg,
		store:   store,
		remuxer: remuxer,
		logger:  logging.NewComponentLogger(logger, "coordinator"),
	}
}

// Run executes the plan. onResult, when non-nil, is called once per job in
// completion order. Cancellation stops dispatching; queued jobs are counted
// as skipped and never marked failed.
func (c *Coordinator) Run(ctx context.Context, plan *Plan, onResult func(Result)) (Summary, error) {
	summary := Summary{BatchID: plan.BatchID, Total: len(plan.Jobs)}
	if len(plan.Jobs) == 0 {
		return summary, nil
	}

	lock, err := acquireLock(c.cfg)
	if err != nil {
		return summary, err
	}
	defer lock.Unlock()

	ctx = services.WithRequestID(ctx, plan.BatchID)
	logger := c.logger.With(logging.String(logging.FieldCorrelationID, plan.BatchID))

	for _, job := range plan.Jobs {
		if err := c.store.NewJob(ctx, job); err != nil {
			return summary, err
		}
	}
	logger.Info("batch started",
		logging.Int("jobs", len(plan.Jobs)),
		logging.Int("workers", c.workers()))

	jobs := make(chan *queue.Job)
	results := make(chan Result)

	var wg sync.WaitGroup
	for i := 0; i < c.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- Result{Job: job, Err: c.runJob(ctx, job)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, job := range plan.Jobs {
			// Checked before the send: once cancelled, no further job may
			// dispatch even when a worker is already waiting.
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case jobs <- job:
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	dispatched := 0
	for result := range results {
		dispatched++
		if result.Err != nil {
			summary.Failed++
		} else {
			summary.Completed++
		}
		if onResult != nil {
			onResult(result)
		}
	}
	summary.Skipped = summary.Total - dispatched

	logger.Info("batch finished",
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped))
	return summary, ctx.Err()
}

func (c *Coordinator) workers() int {
	if c.cfg.Export.Workers > 0 {
		return c.cfg.Export.Workers
	}
	return 1
}

// runJob moves one job through running into a terminal state, persisting
// every transition.
func (c *Coordinator) runJob(ctx context.Context, job *queue.Job) error {
	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithEntryID(jobCtx, job.EntryDir)
	logger := logging.WithContext(jobCtx, c.logger)

	job.Status = queue.StatusRunning
	if err := c.store.Update(jobCtx, job); err != nil {
		return err
	}

	exportErr := c.remuxer.Export(jobCtx, job)
	if exportErr != nil {
		job.Status = queue.StatusFailed
		job.ErrorReason = FailureReason(exportErr)
		job.ErrorDetail = exportErr.Error()
	} else {
		job.Status = queue.StatusCompleted
		job.ErrorReason = ""
		job.ErrorDetail = ""
	}
	// Terminal states must land even when the batch context is already
	// cancelled, otherwise interrupted jobs read as running forever.
	if err := c.store.Update(context.WithoutCancel(jobCtx), job); err != nil {
		logger.Error("persist job state", logging.Error(err))
	}
	return exportErr
}
