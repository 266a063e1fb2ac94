// internal/janitor/janitor.go
package janitor

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/user/gitscout/internal/session"
)

// DefaultSchedule runs the sweep at the top of every hour.
const DefaultSchedule = "0 * * * *"

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Janitor periodically evicts idle sessions. An idleTTL of zero keeps the
// ticker running for stats logging but evicts nothing.
type Janitor struct {
	manager  *session.Manager
	idleTTL  time.Duration
	schedule string
	cron     *cron.Cron
}

// New creates a Janitor sweeping manager on schedule (DefaultSchedule when
// empty).
func New(manager *session.Manager, idleTTL time.Duration, schedule string) *Janitor {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Janitor{
		manager:  manager,
		idleTTL:  idleTTL,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the sweep job and starts the cron ticker.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.sweep); err != nil {
		return err
	}
	j.cron.Start()
	slog.Info("janitor started", "schedule", j.schedule, "idle_ttl", j.idleTTL)
	return nil
}

// Stop halts the cron ticker and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *Janitor) sweep() {
	evicted := j.manager.Sweep(j.idleTTL)
	slog.Info("session sweep", "evicted", evicted, "live", j.manager.Len())
}
