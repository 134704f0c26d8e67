/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	donors and pickup requests, so the admin dashboard and donor history
	pages have something to show in a fresh environment.

AVAILABLE SCENARIOS:

	first-donation:  One new bakery with a single pending request
	busy-week:       Three donors, requests in every lifecycle state
	impact-history:  Two long-time donors with completed rescues only

HOW SCENARIOS WORK:
 1. Create donor profiles under fixed demo ids (demo-<scenario>-<n>)
 2. Create pickup requests through rescue.Pickups (same validation as the API)
 3. Walk some requests through the lifecycle as a system admin

Loading sends no chat alerts. Records are never deleted, so a scenario
can be loaded only once per store; a second load answers 409.

USAGE VIA API:

	POST /api/admin/scenarios/load
	{"scenarioId": "busy-week"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add a seed to 'scenarioSeeds'

SEE ALSO:
  - handlers.go: Admin routes
  - rescue/lifecycle.go: Transitions used by the loader
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/harvestlink/rescue-engine/logger"
	"github.com/harvestlink/rescue-engine/rescue"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "first-donation",
		Name:        "First Donation",
		Description: "A bakery that just signed up, with one pending pickup",
	},
	{
		ID:          "busy-week",
		Name:        "Busy Week",
		Description: "Three donors with pending, confirmed, completed and cancelled pickups",
	},
	{
		ID:          "impact-history",
		Name:        "Impact History",
		Description: "Two regular donors with a history of completed rescues",
	},
}

type donorSeed struct {
	email   string
	profile rescue.DonorProfile
}

type pickupSeed struct {
	donor      int // index into the scenario's donors
	food       string
	weight     float64
	daysAhead  int
	window     rescue.TimeWindow
	finalState rescue.Status
	actual     float64 // completed only; 0 records the estimate
}

type scenarioSeed struct {
	donors  []donorSeed
	pickups []pickupSeed
}

var scenarioSeeds = map[string]scenarioSeed{
	"first-donation": {
		donors: []donorSeed{
			{email: "hello@risingloaf.example", profile: demoProfile("Rising Loaf Bakery", "Priya Shah", rescue.BusinessBakery, "48 Baker St")},
		},
		pickups: []pickupSeed{
			{food: "Day-old bread and pastries", weight: 15, daysAhead: 1, window: rescue.WindowMorning, finalState: rescue.StatusPending},
		},
	},
	"busy-week": {
		donors: []donorSeed{
			{email: "kitchen@cornerbistro.example", profile: demoProfile("Corner Bistro", "Sam Rivera", rescue.BusinessRestaurant, "12 Main St")},
			{email: "ops@freshmart.example", profile: demoProfile("FreshMart Grocery", "Dana Lee", rescue.BusinessGrocery, "300 Market Ave")},
			{email: "events@platterco.example", profile: demoProfile("Platter & Co Catering", "Luis Ortega", rescue.BusinessCaterer, "9 Event Plaza")},
		},
		pickups: []pickupSeed{
			{donor: 0, food: "Sandwich platters", weight: 25, daysAhead: 1, window: rescue.WindowAfternoon, finalState: rescue.StatusPending},
			{donor: 1, food: "Mixed produce, bruised but fresh", weight: 120, daysAhead: 2, window: rescue.WindowMorning, finalState: rescue.StatusConfirmed},
			{donor: 2, food: "Conference lunch leftovers", weight: 40, daysAhead: -1, window: rescue.WindowEvening, finalState: rescue.StatusCompleted, actual: 37.5},
			{donor: 1, food: "Dairy near sell-by date", weight: 60, daysAhead: -2, window: rescue.WindowMorning, finalState: rescue.StatusCompleted},
			{donor: 0, food: "Soup, 3 gallons", weight: 30, daysAhead: -3, window: rescue.WindowEvening, finalState: rescue.StatusCancelled},
			{donor: 2, food: "Wedding dessert trays", weight: 18, daysAhead: 3, window: rescue.WindowEvening, finalState: rescue.StatusPending},
		},
	},
	"impact-history": {
		donors: []donorSeed{
			{email: "manager@greenleaf.example", profile: demoProfile("Greenleaf Market", "Avery Kim", rescue.BusinessGrocery, "77 Orchard Rd")},
			{email: "facilities@acmecorp.example", profile: demoProfile("Acme Corp Cafeteria", "Jordan Blake", rescue.BusinessCorporate, "1 Acme Way")},
		},
		pickups: []pickupSeed{
			{donor: 0, food: "Produce crates", weight: 200, daysAhead: -30, window: rescue.WindowMorning, finalState: rescue.StatusCompleted, actual: 185},
			{donor: 0, food: "Bakery section surplus", weight: 45, daysAhead: -20, window: rescue.WindowAfternoon, finalState: rescue.StatusCompleted, actual: 52.25},
			{donor: 1, food: "Cafeteria hot trays", weight: 35, daysAhead: -14, window: rescue.WindowAfternoon, finalState: rescue.StatusCompleted},
			{donor: 1, food: "Boxed salads", weight: 20, daysAhead: -7, window: rescue.WindowAfternoon, finalState: rescue.StatusCompleted, actual: 18.75},
		},
	},
}

func demoProfile(business, contact string, kind rescue.BusinessType, street string) rescue.DonorProfile {
	return rescue.DonorProfile{
		BusinessName: business,
		ContactName:  contact,
		Phone:        "(217) 555-0100",
		Address:      rescue.Address{Street: street, City: "Springfield", State: "IL", Zip: "62701"},
		BusinessType: kind,
	}
}

// scenarioLoader acts as this admin when walking requests through the lifecycle.
var scenarioLoader = &rescue.Session{PrincipalID: "scenario-loader", Role: rescue.RoleAdmin}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
// GET /api/admin/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario loads a predefined scenario.
// POST /api/admin/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	seed, ok := scenarioSeeds[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	resp, err := h.loadScenario(r.Context(), req.ScenarioID, seed)
	if err != nil {
		writeDomainError(w, err, "Failed to load scenario")
		return
	}

	logger.Info("Scenario loaded", "scenario", req.ScenarioID, "donors", resp.Donors, "requests", resp.Requests)
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// SCENARIO LOADER
// =============================================================================

func (h *Handler) loadScenario(ctx context.Context, id string, seed scenarioSeed) (LoadScenarioResponse, error) {
	resp := LoadScenarioResponse{ScenarioID: id}
	today := h.Pickups.Now().Truncate(24 * time.Hour)

	donorIDs := make([]string, len(seed.donors))
	for i, d := range seed.donors {
		donorID := fmt.Sprintf("demo-%s-%d", id, i+1)
		if _, err := h.Donors.Create(ctx, donorID, d.email, d.profile); err != nil {
			return resp, fmt.Errorf("create donor %s: %w", donorID, err)
		}
		donorIDs[i] = donorID
		resp.Donors++
	}

	for _, p := range seed.pickups {
		donor := seed.donors[p.donor]
		created, err := h.Pickups.Create(ctx, rescue.PickupInput{
			DonorID:          donorIDs[p.donor],
			FoodDescription:  p.food,
			EstimatedWeight:  p.weight,
			PickupAddress:    donor.profile.Address,
			PickupDate:       today.AddDate(0, 0, p.daysAhead),
			PickupTimeWindow: p.window,
			ContactOnArrival: donor.profile.ContactName + " at the front counter",
		})
		if err != nil {
			return resp, fmt.Errorf("create pickup %q: %w", p.food, err)
		}
		resp.Requests++

		if err := h.advance(ctx, created.ID, p); err != nil {
			return resp, fmt.Errorf("advance pickup %s: %w", created.ID, err)
		}
	}
	return resp, nil
}

// advance walks a pending request to the seed's final state.
func (h *Handler) advance(ctx context.Context, id string, p pickupSeed) error {
	var err error
	switch p.finalState {
	case rescue.StatusPending:
	case rescue.StatusCancelled:
		_, err = h.Lifecycle.Cancel(ctx, scenarioLoader, id)
	case rescue.StatusConfirmed:
		_, err = h.Lifecycle.Confirm(ctx, scenarioLoader, id)
	case rescue.StatusCompleted:
		if _, err = h.Lifecycle.Confirm(ctx, scenarioLoader, id); err != nil {
			return err
		}
		actual := p.actual
		if actual == 0 {
			actual = p.weight
		}
		_, err = h.Lifecycle.Complete(ctx, scenarioLoader, id, actual)
	}
	return err
}
