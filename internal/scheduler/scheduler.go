package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Revalidator re-checks configured calendar names against the app.
type Revalidator interface {
	Revalidate(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	spec    string
	target  Revalidator
	timeout time.Duration
}

// New creates a scheduler running target.Revalidate on spec. An empty spec
// disables the job.
func New(spec string, target Revalidator) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		spec:    spec,
		target:  target,
		timeout: 2 * time.Minute,
	}
}

// Start registers the job and blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.spec == "" {
		log.Println("Revalidation disabled")
		<-ctx.Done()
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, func() { s.revalidate(ctx) }); err != nil {
		return fmt.Errorf("add revalidation %q: %w", s.spec, err)
	}

	s.cron.Start()
	log.Printf("Scheduler started (revalidate: %s)", s.spec)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) revalidate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.target.Revalidate(ctx); err != nil {
		log.Printf("Error revalidating calendars: %v", err)
	}
}
