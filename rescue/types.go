/*
types.go - Core domain types for food rescue logistics

PURPOSE:
  Defines the records the engine persists and reasons about:
  - Donor:          A business that gives away surplus food
  - PickupRequest:  One offer of food to be collected from a donor
  - Address:        Street address shared by both

  These types carry no storage or transport tags. Backends and the
  HTTP layer map them to their own representations.

LIFECYCLE STATES:
  pending ──▶ confirmed ──▶ completed
     │            │
     └────────────┴──────▶ cancelled

  completed and cancelled are terminal. See lifecycle.go.

SEE ALSO:
  - lifecycle.go: Transition rules
  - store.go: Persistence interfaces
  - validate.go: Field-level validation
*/
package rescue

import (
	"fmt"
	"time"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

// Status is the lifecycle state of a pickup request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists statuses in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus converts a raw string into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", &ValidationError{Field: "status", Message: fmt.Sprintf("Invalid status %q", raw)}
	}
	return s, nil
}

// TimeWindow is the part of the day in which food can be collected.
type TimeWindow string

const (
	WindowMorning   TimeWindow = "morning"
	WindowAfternoon TimeWindow = "afternoon"
	WindowEvening   TimeWindow = "evening"
)

func (w TimeWindow) Valid() bool {
	switch w {
	case WindowMorning, WindowAfternoon, WindowEvening:
		return true
	}
	return false
}

// Label returns the human readable window with its hours.
func (w TimeWindow) Label() string {
	switch w {
	case WindowMorning:
		return "Morning (8am-12pm)"
	case WindowAfternoon:
		return "Afternoon (12pm-5pm)"
	case WindowEvening:
		return "Evening (5pm-8pm)"
	}
	return string(w)
}

// BusinessType classifies a donor.
type BusinessType string

const (
	BusinessRestaurant BusinessType = "restaurant"
	BusinessGrocery    BusinessType = "grocery"
	BusinessCaterer    BusinessType = "caterer"
	BusinessBakery     BusinessType = "bakery"
	BusinessCorporate  BusinessType = "corporate"
	BusinessOther      BusinessType = "other"
)

func (b BusinessType) Valid() bool {
	switch b {
	case BusinessRestaurant, BusinessGrocery, BusinessCaterer, BusinessBakery, BusinessCorporate, BusinessOther:
		return true
	}
	return false
}

// =============================================================================
// RECORDS
// =============================================================================

// Address is a US street address.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

// String formats the address on one line: "street, city, state zip".
func (a Address) String() string {
	return fmt.Sprintf("%s, %s, %s %s", a.Street, a.City, a.State, a.Zip)
}

func (a Address) complete() bool {
	return a.Street != "" && a.City != "" && a.State != "" && a.Zip != ""
}

// Donor is a business profile. ID is the identity provider's principal id,
// so there is at most one donor per principal.
type Donor struct {
	ID           string
	Email        string
	BusinessName string
	ContactName  string
	Phone        string
	Address      Address
	BusinessType BusinessType
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PickupRequest is a donor's offer of surplus food.
type PickupRequest struct {
	ID      string
	DonorID string
	Status  Status

	FoodDescription     string
	EstimatedWeight     float64 // pounds
	PickupAddress       Address
	PickupDate          time.Time
	PickupTimeWindow    TimeWindow
	ContactOnArrival    string
	SpecialInstructions string

	// Set only once the request has been completed.
	ActualWeight *float64

	ConfirmedAt *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Version increases on every write and guards lifecycle updates.
	Version int
}

// RescuedWeight is the weight counted toward impact: the recorded actual
// weight, falling back to the donor's estimate.
func (p PickupRequest) RescuedWeight() float64 {
	if p.ActualWeight != nil {
		return *p.ActualWeight
	}
	return p.EstimatedWeight
}

// =============================================================================
// INPUTS AND PATCHES
// =============================================================================

// PickupInput is what a donor supplies when submitting a request.
type PickupInput struct {
	DonorID             string
	FoodDescription     string
	EstimatedWeight     float64
	PickupAddress       Address
	PickupDate          time.Time
	PickupTimeWindow    TimeWindow
	ContactOnArrival    string
	SpecialInstructions string
}

// DonorProfile holds the editable fields of a donor.
type DonorProfile struct {
	BusinessName string
	ContactName  string
	Phone        string
	Address      Address
	BusinessType BusinessType
}

// PickupPatch is a partial update. Nil fields are left untouched.
type PickupPatch struct {
	Status              *Status
	FoodDescription     *string
	EstimatedWeight     *float64
	PickupAddress       *Address
	PickupDate          *time.Time
	PickupTimeWindow    *TimeWindow
	ContactOnArrival    *string
	SpecialInstructions *string
	ActualWeight        *float64
	ConfirmedAt         *time.Time
	CompletedAt         *time.Time
}

// Empty reports whether the patch changes nothing.
func (p PickupPatch) Empty() bool {
	return p == PickupPatch{}
}

// Apply merges the patch into r. Bookkeeping fields (UpdatedAt, Version)
// are the store's responsibility.
func (p PickupPatch) Apply(r *PickupRequest) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.FoodDescription != nil {
		r.FoodDescription = *p.FoodDescription
	}
	if p.EstimatedWeight != nil {
		r.EstimatedWeight = *p.EstimatedWeight
	}
	if p.PickupAddress != nil {
		r.PickupAddress = *p.PickupAddress
	}
	if p.PickupDate != nil {
		r.PickupDate = *p.PickupDate
	}
	if p.PickupTimeWindow != nil {
		r.PickupTimeWindow = *p.PickupTimeWindow
	}
	if p.ContactOnArrival != nil {
		r.ContactOnArrival = *p.ContactOnArrival
	}
	if p.SpecialInstructions != nil {
		r.SpecialInstructions = *p.SpecialInstructions
	}
	if p.ActualWeight != nil {
		w := *p.ActualWeight
		r.ActualWeight = &w
	}
	if p.ConfirmedAt != nil {
		t := *p.ConfirmedAt
		r.ConfirmedAt = &t
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		r.CompletedAt = &t
	}
}

// PickupFilter narrows a pickup listing. Zero values mean "any".
type PickupFilter struct {
	DonorID string
	Status  *Status
}

// Matches reports whether r passes the filter.
func (f PickupFilter) Matches(r PickupRequest) bool {
	if f.DonorID != "" && r.DonorID != f.DonorID {
		return false
	}
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	return true
}
