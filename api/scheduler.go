/*
scheduler.go - Pending pickup digest scheduler

PURPOSE:
  Periodically posts a summary of pickup requests still awaiting triage,
  so that nothing submitted outside working hours is forgotten. The
  immediate per-request alert is sent at submission; this is the reminder.

DESIGN:
  - robfig/cron with seconds precision, schedules evaluated in UTC
  - Each run lists pending requests, resolves donor business names,
    and hands one Digest to the notifier
  - An empty pending list sends nothing
  - Runs are logged with a run id for correlation

CONFIGURATION:
  - Schedule: 6-field cron expression (default "0 0 9 * * *", 9 AM UTC)

USAGE:
  scheduler, err := NewDigestScheduler(pickups, donors, dispatcher, "0 0 9 * * *")
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - notify/dispatcher.go: NotifyDigest
  - rescue/pickups.go: Pending
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/harvestlink/rescue-engine/logger"
	"github.com/harvestlink/rescue-engine/notify"
	"github.com/harvestlink/rescue-engine/rescue"
)

// DigestNotifier receives pending digests.
type DigestNotifier interface {
	NotifyDigest(ctx context.Context, digest notify.Digest)
}

// DigestScheduler posts pending-request digests on a cron schedule.
type DigestScheduler struct {
	Pickups  *rescue.Pickups
	Donors   *rescue.Donors
	Notifier DigestNotifier
	Now      func() time.Time

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewDigestScheduler creates a scheduler. An unparseable schedule is an error.
func NewDigestScheduler(pickups *rescue.Pickups, donors *rescue.Donors, notifier DigestNotifier, schedule string) (*DigestScheduler, error) {
	ds := &DigestScheduler{
		Pickups:  pickups,
		Donors:   donors,
		Notifier: notifier,
		Now:      func() time.Time { return time.Now().UTC() },
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithSeconds(),
		),
	}

	if _, err := ds.cron.AddFunc(schedule, ds.run); err != nil {
		return nil, fmt.Errorf("invalid digest schedule %q: %w", schedule, err)
	}
	return ds, nil
}

// Start begins the scheduler.
func (ds *DigestScheduler) Start() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.running {
		return
	}
	ds.cron.Start()
	ds.running = true
	logger.Info("Digest scheduler started", "next_run", ds.cron.Entries()[0].Next)
}

// Stop stops the scheduler and waits for a running digest to finish.
func (ds *DigestScheduler) Stop() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if !ds.running {
		return
	}
	<-ds.cron.Stop().Done()
	ds.running = false
	logger.Info("Digest scheduler stopped")
}

func (ds *DigestScheduler) run() {
	if _, err := ds.RunOnce(context.Background()); err != nil {
		logger.Error("Digest run failed", "error", err)
	}
}

// RunOnce builds and sends one digest, returning how many requests it listed.
func (ds *DigestScheduler) RunOnce(ctx context.Context) (int, error) {
	runID := uuid.NewString()
	log := logger.WithComponent("digest").With("run_id", runID)

	pending, err := ds.Pickups.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}
	if len(pending) == 0 {
		log.Debug("No pending pickup requests")
		return 0, nil
	}

	names := make(map[string]string)
	items := make([]notify.DigestItem, 0, len(pending))
	for _, req := range pending {
		name, ok := names[req.DonorID]
		if !ok {
			name = req.DonorID
			donor, err := ds.Donors.Get(ctx, req.DonorID)
			if err != nil {
				log.Warn("Donor lookup failed", "donor_id", req.DonorID, "error", err)
			} else if donor != nil {
				name = donor.BusinessName
			}
			names[req.DonorID] = name
		}
		items = append(items, notify.DigestItem{Request: req, BusinessName: name})
	}

	ds.Notifier.NotifyDigest(ctx, notify.Digest{GeneratedAt: ds.Now(), Pending: items})
	log.Info("Pending digest dispatched", "pending", len(items))
	return len(items), nil
}
