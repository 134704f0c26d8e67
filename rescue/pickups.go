/*
pickups.go - Pickup request store component

PURPOSE:
  The authoritative API over pickup request records. Wraps a PickupStore
  backend with validation, id assignment and timestamping.

WHAT THIS DOES NOT DO:
  Update merges fields without checking lifecycle legality. Status
  changes must go through Lifecycle, which applies Transition first.

CREATE FLOW:
  validate input ──▶ donor exists? ──▶ assign id, status=pending ──▶ insert ──▶ re-read

  The returned record is the one read back from the store, so callers see
  exactly what was persisted (including store-side normalisation).

EXAMPLE:
  pickups := rescue.NewPickups(store)
  req, err := pickups.Create(ctx, rescue.PickupInput{DonorID: "uid-1", ...})
  mine, err := pickups.ListByDonor(ctx, "uid-1")

SEE ALSO:
  - lifecycle.go: Guarded status transitions built on Update
  - store.go: Backend contract
*/
package rescue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Pickups manages pickup request records.
type Pickups struct {
	Store Store

	// Now and NewID are overridable in tests.
	Now   func() time.Time
	NewID func() string
}

// NewPickups creates the component with wall-clock time and UUID ids.
func NewPickups(store Store) *Pickups {
	return &Pickups{
		Store: store,
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: func() string { return uuid.NewString() },
	}
}

// Create validates and persists a new pending request.
func (p *Pickups) Create(ctx context.Context, in PickupInput) (*PickupRequest, error) {
	req, _, err := p.create(ctx, in)
	return req, err
}

// create also returns the donor it looked up, for notification.
func (p *Pickups) create(ctx context.Context, in PickupInput) (*PickupRequest, *Donor, error) {
	in.FoodDescription = strings.TrimSpace(in.FoodDescription)
	in.ContactOnArrival = strings.TrimSpace(in.ContactOnArrival)
	in.SpecialInstructions = strings.TrimSpace(in.SpecialInstructions)

	if err := in.Validate(); err != nil {
		return nil, nil, err
	}

	in.PickupDate = dateOnly(in.PickupDate)

	donor, err := p.Store.GetDonor(ctx, in.DonorID)
	if err != nil {
		return nil, nil, wrapStore("get donor", err)
	}
	if donor == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrDonorNotFound, in.DonorID)
	}

	now := p.Now()
	req := PickupRequest{
		ID:                  p.NewID(),
		DonorID:             in.DonorID,
		Status:              StatusPending,
		FoodDescription:     in.FoodDescription,
		EstimatedWeight:     in.EstimatedWeight,
		PickupAddress:       in.PickupAddress,
		PickupDate:          in.PickupDate,
		PickupTimeWindow:    in.PickupTimeWindow,
		ContactOnArrival:    in.ContactOnArrival,
		SpecialInstructions: in.SpecialInstructions,
		CreatedAt:           now,
		UpdatedAt:           now,
		Version:             1,
	}

	if err := p.Store.InsertPickup(ctx, req); err != nil {
		return nil, nil, wrapStore("insert pickup", err)
	}

	stored, err := p.Store.GetPickup(ctx, req.ID)
	if err != nil {
		return nil, nil, wrapStore("read back pickup", err)
	}
	if stored == nil {
		return nil, nil, &OperationError{Op: "read back pickup", Err: ErrPickupNotFound}
	}
	return stored, donor, nil
}

// Get returns the request or nil when it doesn't exist.
func (p *Pickups) Get(ctx context.Context, id string) (*PickupRequest, error) {
	req, err := p.Store.GetPickup(ctx, id)
	if err != nil {
		return nil, wrapStore("get pickup", err)
	}
	return req, nil
}

// ListByDonor returns a donor's requests, newest first.
func (p *Pickups) ListByDonor(ctx context.Context, donorID string) ([]PickupRequest, error) {
	reqs, err := p.Store.ListPickups(ctx, PickupFilter{DonorID: donorID})
	if err != nil {
		return nil, wrapStore("list pickups by donor", err)
	}
	return reqs, nil
}

// ListAll returns every request, optionally restricted to one status, newest first.
func (p *Pickups) ListAll(ctx context.Context, status *Status) ([]PickupRequest, error) {
	reqs, err := p.Store.ListPickups(ctx, PickupFilter{Status: status})
	if err != nil {
		return nil, wrapStore("list pickups", err)
	}
	return reqs, nil
}

// Pending returns requests awaiting triage.
func (p *Pickups) Pending(ctx context.Context) ([]PickupRequest, error) {
	s := StatusPending
	return p.ListAll(ctx, &s)
}

// Update merges patch into the request and returns the stored result.
// expectedVersion == 0 applies the patch unconditionally.
func (p *Pickups) Update(ctx context.Context, id string, patch PickupPatch, expectedVersion int) (*PickupRequest, error) {
	if patch.Empty() {
		return nil, &ValidationError{Field: "patch", Message: "Nothing to update"}
	}
	if err := p.Store.UpdatePickup(ctx, id, patch, expectedVersion, p.Now()); err != nil {
		return nil, wrapStore("update pickup", err)
	}
	req, err := p.Store.GetPickup(ctx, id)
	if err != nil {
		return nil, wrapStore("read back pickup", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: %s", ErrPickupNotFound, id)
	}
	return req, nil
}

// dateOnly keeps the calendar day as written and drops the time of day, so
// every store reads back the same value.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
