/*
Package notify delivers best-effort alerts about pickup requests to chat channels.

DELIVERY CONTRACT:
  - The caller never waits for delivery and never sees a delivery error.
  - Each configured sink receives each alert once; there is no retry.
  - Failures (network, non-2xx, bad token) are logged and dropped.
  - With no sinks configured, Notify is a logged no-op.

BACKGROUND WORK:
  Deliveries run on their own goroutine with a context detached from the
  triggering HTTP request, bounded by Timeout. Wait() blocks until all
  in-flight deliveries finish; call it during shutdown.

SINKS:
  - SlackWebhook: Block Kit message to an incoming-webhook URL
  - Telegram:     Plain-text message to a chat via the Bot API
*/
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/harvestlink/rescue-engine/logger"
	"github.com/harvestlink/rescue-engine/rescue"
)

// Sink is one outbound channel.
type Sink interface {
	Name() string
	SendAlert(ctx context.Context, a Alert) error
	SendDigest(ctx context.Context, d Digest) error
}

// DefaultTimeout bounds one delivery to all sinks.
const DefaultTimeout = 10 * time.Second

// Dispatcher fans alerts out to sinks in the background.
type Dispatcher struct {
	sinks   []Sink
	Timeout time.Duration

	wg sync.WaitGroup
}

func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, Timeout: DefaultTimeout}
}

// Enabled reports whether any sink is configured.
func (d *Dispatcher) Enabled() bool {
	return len(d.sinks) > 0
}

// NotifyNewPickup implements rescue.Notifier.
func (d *Dispatcher) NotifyNewPickup(ctx context.Context, req rescue.PickupRequest, donor rescue.Donor) {
	alert := Alert{Request: req, Donor: donor}
	d.dispatch(ctx, "new_pickup", "request_id", req.ID, func(ctx context.Context, s Sink) error {
		return s.SendAlert(ctx, alert)
	})
}

// NotifyDigest posts a pending-requests summary. Empty digests are skipped.
func (d *Dispatcher) NotifyDigest(ctx context.Context, digest Digest) {
	if len(digest.Pending) == 0 {
		return
	}
	d.dispatch(ctx, "pending_digest", "pending", len(digest.Pending), func(ctx context.Context, s Sink) error {
		return s.SendDigest(ctx, digest)
	})
}

// Wait blocks until in-flight deliveries complete.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, kind string, key string, value any, send func(context.Context, Sink) error) {
	if !d.Enabled() {
		logger.Info("Notification skipped: no channels configured", "kind", kind, key, value)
		return
	}

	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(detached, d.Timeout)
		defer cancel()

		for _, s := range d.sinks {
			logger.ExternalServiceCall(s.Name(), kind, key, value)
			err := send(ctx, s)
			logger.ExternalServiceResult(s.Name(), kind, err, key, value)
		}
	}()
}
