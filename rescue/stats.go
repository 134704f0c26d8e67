/*
stats.go - Impact statistics derived from the store

PURPOSE:
  Computes the numbers shown on dashboards: pounds rescued, completed
  pickups, active donors. Every call scans the store; nothing is cached,
  so results are always consistent with the records at read time.

WEIGHT RULE:
  A completed request contributes its actual weight, or its estimated
  weight if none was recorded. Non-completed requests contribute nothing.
  Sums use decimal arithmetic so repeated fractional weights don't drift.

ACTIVE DONORS:
  ActiveDonorCount is the number of donor profiles, regardless of whether
  they ever submitted a request.

SEE ALSO:
  - types.go: PickupRequest.RescuedWeight
*/
package rescue

import (
	"context"

	"github.com/shopspring/decimal"
)

// Impact is the rescued-food total for some set of requests.
type Impact struct {
	Pounds  decimal.Decimal
	Rescues int
}

// Summary is the admin dashboard view.
type Summary struct {
	Impact
	ActiveDonors int
	ByStatus     map[Status]int
}

// Stats aggregates over the store.
type Stats struct {
	Store Store
}

func NewStats(store Store) *Stats {
	return &Stats{Store: store}
}

// TotalPoundsRescued sums rescued weight over completed requests.
func (s *Stats) TotalPoundsRescued(ctx context.Context) (decimal.Decimal, error) {
	impact, err := s.impact(ctx, PickupFilter{})
	return impact.Pounds, err
}

// TotalRescueCount counts completed requests.
func (s *Stats) TotalRescueCount(ctx context.Context) (int, error) {
	impact, err := s.impact(ctx, PickupFilter{})
	return impact.Rescues, err
}

// DonorStats is the impact of one donor's completed requests.
func (s *Stats) DonorStats(ctx context.Context, donorID string) (Impact, error) {
	return s.impact(ctx, PickupFilter{DonorID: donorID})
}

// ActiveDonorCount is the number of donor profiles.
func (s *Stats) ActiveDonorCount(ctx context.Context) (int, error) {
	n, err := s.Store.CountDonors(ctx)
	if err != nil {
		return 0, wrapStore("count donors", err)
	}
	return n, nil
}

// Summary gathers every figure in one pass over the requests.
func (s *Stats) Summary(ctx context.Context) (Summary, error) {
	reqs, err := s.Store.ListPickups(ctx, PickupFilter{})
	if err != nil {
		return Summary{}, wrapStore("list pickups", err)
	}
	donors, err := s.ActiveDonorCount(ctx)
	if err != nil {
		return Summary{}, err
	}

	byStatus := make(map[Status]int, len(AllStatuses))
	for _, st := range AllStatuses {
		byStatus[st] = 0
	}
	for _, r := range reqs {
		byStatus[r.Status]++
	}

	return Summary{
		Impact:       sumImpact(reqs),
		ActiveDonors: donors,
		ByStatus:     byStatus,
	}, nil
}

func (s *Stats) impact(ctx context.Context, filter PickupFilter) (Impact, error) {
	completed := StatusCompleted
	filter.Status = &completed
	reqs, err := s.Store.ListPickups(ctx, filter)
	if err != nil {
		return Impact{}, wrapStore("list pickups", err)
	}
	return sumImpact(reqs), nil
}

func sumImpact(reqs []PickupRequest) Impact {
	impact := Impact{Pounds: decimal.Zero}
	for _, r := range reqs {
		if r.Status != StatusCompleted {
			continue
		}
		impact.Pounds = impact.Pounds.Add(decimal.NewFromFloat(r.RescuedWeight()))
		impact.Rescues++
	}
	return impact
}
