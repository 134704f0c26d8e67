/*
lifecycle.go - Pickup request lifecycle controller

PURPOSE:
  Enforces which status changes are legal, who may make them, and what
  each change records. Also owns donor submission, which ends with a
  best-effort notification.

TRANSITION TABLE:
  ┌───────────┬──────────────┬───────────┬─────────────────────────────┐
  │ From      │ Operation    │ To        │ Records                     │
  ├───────────┼──────────────┼───────────┼─────────────────────────────┤
  │ pending   │ confirm      │ confirmed │ confirmedAt                 │
  │ pending   │ cancel       │ cancelled │                             │
  │ confirmed │ cancel       │ cancelled │                             │
  │ confirmed │ complete(w)  │ completed │ actualWeight=w, completedAt │
  └───────────┴──────────────┴───────────┴─────────────────────────────┘
  Every transition requires the admin role. completed and cancelled are
  terminal. Transition() is a pure function of (status, op, role).

SUBMISSION ORDER:
  1. Validate and persist (status=pending)
  2. Hand the stored record to the Notifier
  Step 2 never fails the submission; delivery happens in the background.

CONCURRENCY:
  Lifecycle writes carry the Version they read. If another writer got
  there first the store returns ErrConcurrentModification and nothing is
  written; the caller reloads and decides again.

EXAMPLE:
  lc := rescue.NewLifecycle(pickups, dispatcher)
  req, err := lc.Submit(ctx, donorSession, input)
  req, err = lc.Confirm(ctx, adminSession, req.ID)
  req, err = lc.Complete(ctx, adminSession, req.ID, 42.5)

SEE ALSO:
  - pickups.go: Underlying Update without lifecycle checks
  - notify/dispatcher.go: Notifier implementation
*/
package rescue

import (
	"context"
	"fmt"
	"time"
)

// Operation is a lifecycle action.
type Operation string

const (
	OpConfirm  Operation = "confirm"
	OpComplete Operation = "complete"
	OpCancel   Operation = "cancel"
)

type transitionKey struct {
	from Status
	op   Operation
}

var transitions = map[transitionKey]Status{
	{StatusPending, OpConfirm}:    StatusConfirmed,
	{StatusPending, OpCancel}:     StatusCancelled,
	{StatusConfirmed, OpCancel}:   StatusCancelled,
	{StatusConfirmed, OpComplete}: StatusCompleted,
}

// Transition returns the status op leads to from current, or an error if
// role may not perform it or the table has no such edge.
func Transition(current Status, op Operation, role Role) (Status, error) {
	if role != RoleAdmin {
		return "", fmt.Errorf("%w: %s requires the admin role", ErrForbidden, op)
	}
	next, ok := transitions[transitionKey{current, op}]
	if !ok {
		return "", &TransitionError{From: current, Op: op}
	}
	return next, nil
}

// Notifier receives newly created requests. Implementations must not block
// the caller on delivery.
type Notifier interface {
	NotifyNewPickup(ctx context.Context, req PickupRequest, donor Donor)
}

// =============================================================================
// LIFECYCLE CONTROLLER
// =============================================================================

// Lifecycle applies guarded transitions to pickup requests.
type Lifecycle struct {
	Pickups  *Pickups
	Notifier Notifier // optional
}

func NewLifecycle(pickups *Pickups, notifier Notifier) *Lifecycle {
	return &Lifecycle{Pickups: pickups, Notifier: notifier}
}

// Submit creates a pending request on behalf of the session. Donors may
// only submit for themselves; an empty DonorID defaults to the caller.
func (lc *Lifecycle) Submit(ctx context.Context, sess *Session, in PickupInput) (*PickupRequest, error) {
	if sess == nil {
		return nil, ErrUnauthenticated
	}
	if in.DonorID == "" && !sess.IsAdmin() {
		in.DonorID = sess.PrincipalID
	}
	if in.DonorID != "" && !sess.CanAccessDonor(in.DonorID) {
		return nil, fmt.Errorf("%w: cannot submit for another donor", ErrForbidden)
	}

	req, donor, err := lc.Pickups.create(ctx, in)
	if err != nil {
		return nil, err
	}

	if lc.Notifier != nil {
		lc.Notifier.NotifyNewPickup(ctx, *req, *donor)
	}
	return req, nil
}

// Confirm moves a pending request to confirmed and stamps confirmedAt.
func (lc *Lifecycle) Confirm(ctx context.Context, sess *Session, id string) (*PickupRequest, error) {
	return lc.apply(ctx, sess, id, OpConfirm, func(at time.Time) PickupPatch {
		return PickupPatch{ConfirmedAt: &at}
	})
}

// Complete moves a confirmed request to completed with the weighed amount.
func (lc *Lifecycle) Complete(ctx context.Context, sess *Session, id string, actualWeight float64) (*PickupRequest, error) {
	if actualWeight <= 0 {
		return nil, &ValidationError{Field: "actualWeight", Message: MsgActualWeightTooLow}
	}
	return lc.apply(ctx, sess, id, OpComplete, func(at time.Time) PickupPatch {
		return PickupPatch{ActualWeight: &actualWeight, CompletedAt: &at}
	})
}

// Cancel withdraws a pending or confirmed request. Weight fields are untouched.
func (lc *Lifecycle) Cancel(ctx context.Context, sess *Session, id string) (*PickupRequest, error) {
	return lc.apply(ctx, sess, id, OpCancel, func(time.Time) PickupPatch {
		return PickupPatch{}
	})
}

func (lc *Lifecycle) apply(ctx context.Context, sess *Session, id string, op Operation, sideEffects func(at time.Time) PickupPatch) (*PickupRequest, error) {
	if sess == nil {
		return nil, ErrUnauthenticated
	}
	if !sess.IsAdmin() {
		return nil, fmt.Errorf("%w: %s requires the admin role", ErrForbidden, op)
	}

	current, err := lc.Pickups.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: %s", ErrPickupNotFound, id)
	}

	next, err := Transition(current.Status, op, sess.Role)
	if err != nil {
		return nil, err
	}

	patch := sideEffects(lc.Pickups.Now())
	patch.Status = &next
	return lc.Pickups.Update(ctx, id, patch, current.Version)
}
