/*
store.go - Persistence interfaces for donors and pickup requests

PURPOSE:
  Defines the boundary between domain logic and the database. Each
  backend (memory, SQLite, MongoDB) implements Store in full.

NOT FOUND CONTRACT:
  Get* methods return (nil, nil) when the record is absent. Absence is
  a normal outcome for reads, not an error. Writes against a missing
  record return ErrDonorNotFound / ErrPickupNotFound.

NO DELETES:
  Donors and pickup requests are never deleted. Cancelled requests stay
  in the store with status=cancelled.

OPTIMISTIC CONCURRENCY:
  Every pickup write increments Version. UpdatePickup takes the version
  the caller read; a mismatch returns ErrConcurrentModification.
  expectedVersion == 0 skips the check (last write wins).

ORDERING:
  ListPickups and ListDonors return newest-created first.

IMPLEMENTATIONS:
  - rescue/store/memory.go: In-memory for tests and local dev
  - store/sqlite/sqlite.go: SQLite
  - store/mongo/mongo.go:   MongoDB document store

SEE ALSO:
  - pickups.go: Higher-level component using PickupStore
  - donors.go:  Higher-level component using DonorStore
*/
package rescue

import (
	"context"
	"time"
)

// DonorStore persists donor profiles keyed by principal id.
type DonorStore interface {
	// InsertDonor creates a profile. Returns ErrDonorExists if the id is taken.
	InsertDonor(ctx context.Context, d Donor) error

	// UpdateDonor replaces a profile. Returns ErrDonorNotFound if absent.
	UpdateDonor(ctx context.Context, d Donor) error

	GetDonor(ctx context.Context, id string) (*Donor, error)

	// GetDonorByEmail matches case-insensitively.
	GetDonorByEmail(ctx context.Context, email string) (*Donor, error)

	ListDonors(ctx context.Context) ([]Donor, error)

	CountDonors(ctx context.Context) (int, error)
}

// PickupStore persists pickup requests.
type PickupStore interface {
	InsertPickup(ctx context.Context, p PickupRequest) error

	GetPickup(ctx context.Context, id string) (*PickupRequest, error)

	ListPickups(ctx context.Context, filter PickupFilter) ([]PickupRequest, error)

	// UpdatePickup merges patch, stamps UpdatedAt=at and bumps Version.
	UpdatePickup(ctx context.Context, id string, patch PickupPatch, expectedVersion int, at time.Time) error
}

// Store is the full persistence surface.
type Store interface {
	DonorStore
	PickupStore
}
