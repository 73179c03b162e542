package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
)

// Job is a unit of background work.
type Job interface {
	ID() string
	Run(ctx context.Context)
}

// Runner executes jobs on a cron schedule and on demand. A job never runs
// concurrently with itself: triggers that arrive while it is running collapse
// into a single follow-up run.
type Runner struct {
	cron    *cron.Cron
	jobs    map[string]Job
	running mapset.Set[string]
	pending mapset.Set[string]
	mu      sync.Mutex
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
}

// NewRunner creates a stopped runner
func NewRunner(logger *slog.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cron:    cron.New(),
		jobs:    make(map[string]Job),
		running: mapset.NewThreadUnsafeSet[string](),
		pending: mapset.NewThreadUnsafeSet[string](),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// Add registers a job. A non-empty schedule uses cron syntax or "@every 10m".
func (r *Runner) Add(job Job, schedule string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID()]; ok {
		return fmt.Errorf("job %q already registered", job.ID())
	}
	if schedule != "" {
		id := job.ID()
		if err := r.cron.AddFunc(schedule, func() { r.Trigger(id) }); err != nil {
			return fmt.Errorf("schedule job %q: %w", id, err)
		}
	}
	r.jobs[job.ID()] = job
	return nil
}

// Trigger starts the job now, or queues one follow-up run if it is running.
// Unknown jobs and triggers after Stop are ignored.
func (r *Runner) Trigger(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || r.ctx.Err() != nil {
		return
	}
	if r.running.Contains(id) {
		r.pending.Add(id)
		return
	}

	r.running.Add(id)
	r.wg.Add(1)
	go r.loop(job)
}

func (r *Runner) loop(job Job) {
	defer r.wg.Done()
	id := job.ID()

	for {
		r.logger.Debug("job started", "job", id)
		job.Run(r.ctx)

		r.mu.Lock()
		if r.pending.Contains(id) && r.ctx.Err() == nil {
			r.pending.Remove(id)
			r.mu.Unlock()
			continue
		}
		r.pending.Remove(id)
		r.running.Remove(id)
		r.mu.Unlock()
		return
	}
}

// TriggerFor returns a trigger bound to one job
func (r *Runner) TriggerFor(id string) *Trigger {
	return &Trigger{runner: r, id: id}
}

// Start starts the cron schedule
func (r *Runner) Start() {
	r.logger.Info("starting job runner", "jobs", len(r.jobs))
	r.cron.Start()
}

// Stop halts the schedule, cancels running jobs and waits for them to return
func (r *Runner) Stop() {
	r.logger.Info("stopping job runner")
	r.cron.Stop()

	r.mu.Lock()
	r.cancel()
	r.mu.Unlock()

	r.wg.Wait()
}

// Trigger starts a single registered job on demand.
type Trigger struct {
	runner *Runner
	id     string
}

// Trigger implements the services' BackupTrigger.
func (t *Trigger) Trigger() {
	t.runner.Trigger(t.id)
}
