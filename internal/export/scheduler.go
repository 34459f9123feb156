package export

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler runs an export on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	exporter *Exporter
}

// NewScheduler validates spec (standard five-field cron syntax or a
// descriptor such as "@daily") and prepares the job. Nothing runs until
// Start.
func NewScheduler(ctx context.Context, spec string, exporter *Exporter) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		key, err := exporter.Run(ctx)
		if err != nil {
			log.Printf("scheduled export failed: %v", err)
			return
		}
		log.Printf("scheduled export written to %s", key)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid export schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, exporter: exporter}, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running export to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
