package rescue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Donors manages donor profiles. A profile is created once, after the
// principal signs up, and is never deleted.
type Donors struct {
	Store DonorStore
	Now   func() time.Time
}

func NewDonors(store DonorStore) *Donors {
	return &Donors{
		Store: store,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create stores the first profile for a principal.
func (d *Donors) Create(ctx context.Context, principalID, email string, profile DonorProfile) (*Donor, error) {
	if principalID == "" {
		return nil, ErrUnauthenticated
	}
	profile = profile.normalized()
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	now := d.Now()
	donor := Donor{
		ID:           principalID,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		BusinessName: profile.BusinessName,
		ContactName:  profile.ContactName,
		Phone:        profile.Phone,
		Address:      profile.Address,
		BusinessType: profile.BusinessType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := d.Store.InsertDonor(ctx, donor); err != nil {
		return nil, wrapStore("insert donor", err)
	}
	return d.Get(ctx, principalID)
}

// Update replaces the editable profile fields. Email and CreatedAt are kept.
func (d *Donors) Update(ctx context.Context, id string, profile DonorProfile) (*Donor, error) {
	profile = profile.normalized()
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	existing, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: %s", ErrDonorNotFound, id)
	}

	existing.BusinessName = profile.BusinessName
	existing.ContactName = profile.ContactName
	existing.Phone = profile.Phone
	existing.Address = profile.Address
	existing.BusinessType = profile.BusinessType
	existing.UpdatedAt = d.Now()

	if err := d.Store.UpdateDonor(ctx, *existing); err != nil {
		return nil, wrapStore("update donor", err)
	}
	return d.Get(ctx, id)
}

// Get returns the donor or nil when no profile exists.
func (d *Donors) Get(ctx context.Context, id string) (*Donor, error) {
	donor, err := d.Store.GetDonor(ctx, id)
	if err != nil {
		return nil, wrapStore("get donor", err)
	}
	return donor, nil
}

// GetByEmail returns the donor registered under email, or nil.
func (d *Donors) GetByEmail(ctx context.Context, email string) (*Donor, error) {
	donor, err := d.Store.GetDonorByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, wrapStore("get donor by email", err)
	}
	return donor, nil
}

// List returns all donors, newest first.
func (d *Donors) List(ctx context.Context) ([]Donor, error) {
	donors, err := d.Store.ListDonors(ctx)
	if err != nil {
		return nil, wrapStore("list donors", err)
	}
	return donors, nil
}
