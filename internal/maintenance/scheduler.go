package maintenance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lazypower/retention/internal/store"
)

// Job is what the scheduler runs on each tick.
type Job struct {
	DB         *store.DB
	Retain     int
	MessageLog string // optional role/content JSON file to clean
}

// Run performs one maintenance pass.
func (j Job) Run() {
	if j.DB != nil {
		n, err := PruneSessions(j.DB, j.Retain)
		if err != nil {
			log.Printf("maintenance: prune: %v", err)
		}
		log.Printf("maintenance: pruned %d memory entries", n)
	}
	if j.MessageLog != "" {
		n, err := CleanFile(j.MessageLog)
		if err != nil {
			log.Printf("maintenance: clean %s: %v", j.MessageLog, err)
			return
		}
		log.Printf("maintenance: cleaned %d messages from %s", n, j.MessageLog)
	}
}

// Scheduler runs a Job on a cron schedule with a seconds field,
// e.g. "0 0 3 * * *" for 03:00 daily.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers job under the cron expression expr. The scheduler is idle until Start.
func NewScheduler(expr string, job cron.Job) (*Scheduler, error) {
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddJob(expr, job); err != nil {
		return nil, fmt.Errorf("schedule maintenance %q: %w", expr, err)
	}
	return &Scheduler{cron: c}, nil
}

// Start runs the scheduler until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	log.Printf("maintenance: scheduler started")
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop halts the scheduler and waits up to five seconds for a running job.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		log.Printf("maintenance: stop timed out waiting for running job")
	}
}

// Next reports when the job will next run. Zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
