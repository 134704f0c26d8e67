/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the rescue domain model from the external API contract:
  - camelCase field names expected by the web client
  - dates as strings, weights as plain numbers
  - totals rendered from decimals without float drift

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Donors:    DonorDTO, ProfileRequest, AddressDTO
  Pickups:   PickupRequestDTO, SubmitPickupRequest, CompletePickupRequest
  Session:   SessionDTO
  Stats:     ImpactDTO, PublicStatsDTO, AdminStatsDTO
  Scenarios: ScenarioDTO, LoadScenarioRequest

VALIDATION:
  DTOs only parse. Field rules live in rescue/validate.go so every
  entry point (API, scenarios, tests) applies the same checks.

SEE ALSO:
  - handlers.go: Uses these types
  - rescue/types.go: Domain records
*/
package api

import (
	"strings"
	"time"

	"github.com/harvestlink/rescue-engine/rescue"
)

// Date layouts accepted for pickupDate. The web form sends a plain date.
const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339
)

// =============================================================================
// SHARED
// =============================================================================

// AddressDTO is a street address.
type AddressDTO struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

func (a AddressDTO) toDomain() rescue.Address {
	return rescue.Address{
		Street: strings.TrimSpace(a.Street),
		City:   strings.TrimSpace(a.City),
		State:  strings.TrimSpace(a.State),
		Zip:    strings.TrimSpace(a.Zip),
	}
}

func toAddressDTO(a rescue.Address) AddressDTO {
	return AddressDTO{Street: a.Street, City: a.City, State: a.State, Zip: a.Zip}
}

// ErrorResponse is the standard error response. Message repeats Error
// for web clients that read the "message" key.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func newErrorResponse(message, code string, details any) ErrorResponse {
	return ErrorResponse{Error: message, Message: message, Code: code, Details: details}
}

// =============================================================================
// DONORS
// =============================================================================

// DonorDTO represents a donor profile in API responses.
type DonorDTO struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	BusinessName string     `json:"businessName"`
	ContactName  string     `json:"contactName"`
	Phone        string     `json:"phone"`
	Address      AddressDTO `json:"address"`
	BusinessType string     `json:"businessType"`
	CreatedAt    string     `json:"createdAt"`
	UpdatedAt    string     `json:"updatedAt"`
}

func toDonorDTO(d rescue.Donor) DonorDTO {
	return DonorDTO{
		ID:           d.ID,
		Email:        d.Email,
		BusinessName: d.BusinessName,
		ContactName:  d.ContactName,
		Phone:        d.Phone,
		Address:      toAddressDTO(d.Address),
		BusinessType: string(d.BusinessType),
		CreatedAt:    d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    d.UpdatedAt.Format(time.RFC3339),
	}
}

// ProfileRequest creates or updates the caller's donor profile.
type ProfileRequest struct {
	BusinessName string     `json:"businessName"`
	ContactName  string     `json:"contactName"`
	Phone        string     `json:"phone"`
	Address      AddressDTO `json:"address"`
	BusinessType string     `json:"businessType"`
}

func (p ProfileRequest) toDomain() rescue.DonorProfile {
	return rescue.DonorProfile{
		BusinessName: p.BusinessName,
		ContactName:  p.ContactName,
		Phone:        p.Phone,
		Address:      p.Address.toDomain(),
		BusinessType: rescue.BusinessType(strings.ToLower(strings.TrimSpace(p.BusinessType))),
	}
}

// SessionDTO describes the authenticated caller.
type SessionDTO struct {
	PrincipalID string    `json:"principalId"`
	Email       string    `json:"email"`
	IsAdmin     bool      `json:"isAdmin"`
	Donor       *DonorDTO `json:"donor"`
}

func toSessionDTO(s *rescue.Session) SessionDTO {
	dto := SessionDTO{PrincipalID: s.PrincipalID, Email: s.Email, IsAdmin: s.IsAdmin()}
	if s.Donor != nil {
		d := toDonorDTO(*s.Donor)
		dto.Donor = &d
	}
	return dto
}

// =============================================================================
// PICKUP REQUESTS
// =============================================================================

// SubmitPickupRequest is the donor submission body.
type SubmitPickupRequest struct {
	DonorID             string     `json:"donorId"`
	FoodDescription     string     `json:"foodDescription"`
	EstimatedWeight     float64    `json:"estimatedWeight"`
	PickupAddress       AddressDTO `json:"pickupAddress"`
	PickupDate          string     `json:"pickupDate"`
	PickupTimeWindow    string     `json:"pickupTimeWindow"`
	ContactOnArrival    string     `json:"contactOnArrival"`
	SpecialInstructions string     `json:"specialInstructions,omitempty"`
}

// toInput converts the body. A missing date is left zero so that
// validation reports it alongside the other required fields.
func (s SubmitPickupRequest) toInput() (rescue.PickupInput, error) {
	in := rescue.PickupInput{
		DonorID:             strings.TrimSpace(s.DonorID),
		FoodDescription:     strings.TrimSpace(s.FoodDescription),
		EstimatedWeight:     s.EstimatedWeight,
		PickupAddress:       s.PickupAddress.toDomain(),
		PickupTimeWindow:    rescue.TimeWindow(strings.TrimSpace(s.PickupTimeWindow)),
		ContactOnArrival:    strings.TrimSpace(s.ContactOnArrival),
		SpecialInstructions: strings.TrimSpace(s.SpecialInstructions),
	}
	if raw := strings.TrimSpace(s.PickupDate); raw != "" {
		date, err := parsePickupDate(raw)
		if err != nil {
			return in, &rescue.ValidationError{Field: "pickupDate", Message: "Invalid pickup date"}
		}
		in.PickupDate = date
	}
	return in, nil
}

func parsePickupDate(raw string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(timestampLayout, raw)
}

// SubmitPickupResponse acknowledges a created request.
type SubmitPickupResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// CompletePickupRequest records the weighed amount.
type CompletePickupRequest struct {
	ActualWeight float64 `json:"actualWeight"`
}

// PickupRequestDTO represents a pickup request in API responses.
type PickupRequestDTO struct {
	ID                  string     `json:"id"`
	DonorID             string     `json:"donorId"`
	Status              string     `json:"status"`
	FoodDescription     string     `json:"foodDescription"`
	EstimatedWeight     float64    `json:"estimatedWeight"`
	ActualWeight        *float64   `json:"actualWeight,omitempty"`
	PickupAddress       AddressDTO `json:"pickupAddress"`
	PickupDate          string     `json:"pickupDate"`
	PickupTimeWindow    string     `json:"pickupTimeWindow"`
	ContactOnArrival    string     `json:"contactOnArrival"`
	SpecialInstructions string     `json:"specialInstructions,omitempty"`
	ConfirmedAt         string     `json:"confirmedAt,omitempty"`
	CompletedAt         string     `json:"completedAt,omitempty"`
	CreatedAt           string     `json:"createdAt"`
	UpdatedAt           string     `json:"updatedAt"`
	Version             int        `json:"version"`
}

func toPickupDTO(p rescue.PickupRequest) PickupRequestDTO {
	dto := PickupRequestDTO{
		ID:                  p.ID,
		DonorID:             p.DonorID,
		Status:              string(p.Status),
		FoodDescription:     p.FoodDescription,
		EstimatedWeight:     p.EstimatedWeight,
		ActualWeight:        p.ActualWeight,
		PickupAddress:       toAddressDTO(p.PickupAddress),
		PickupDate:          p.PickupDate.Format(dateLayout),
		PickupTimeWindow:    string(p.PickupTimeWindow),
		ContactOnArrival:    p.ContactOnArrival,
		SpecialInstructions: p.SpecialInstructions,
		CreatedAt:           p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           p.UpdatedAt.Format(time.RFC3339),
		Version:             p.Version,
	}
	if p.ConfirmedAt != nil {
		dto.ConfirmedAt = p.ConfirmedAt.Format(time.RFC3339)
	}
	if p.CompletedAt != nil {
		dto.CompletedAt = p.CompletedAt.Format(time.RFC3339)
	}
	return dto
}

func toPickupDTOs(reqs []rescue.PickupRequest) []PickupRequestDTO {
	dtos := make([]PickupRequestDTO, len(reqs))
	for i, r := range reqs {
		dtos[i] = toPickupDTO(r)
	}
	return dtos
}

// =============================================================================
// STATS
// =============================================================================

// ImpactDTO is rescued food for some set of requests.
type ImpactDTO struct {
	PoundsRescued float64 `json:"poundsRescued"`
	Rescues       int     `json:"rescues"`
}

func toImpactDTO(i rescue.Impact) ImpactDTO {
	return ImpactDTO{PoundsRescued: i.Pounds.Round(2).InexactFloat64(), Rescues: i.Rescues}
}

// PublicStatsDTO is shown on the landing page.
type PublicStatsDTO struct {
	ImpactDTO
	ActiveDonors int `json:"activeDonors"`
}

// AdminStatsDTO adds per-status counts for the dashboard.
type AdminStatsDTO struct {
	PublicStatsDTO
	ByStatus map[string]int `json:"byStatus"`
}

func toAdminStatsDTO(s rescue.Summary) AdminStatsDTO {
	byStatus := make(map[string]int, len(rescue.AllStatuses))
	for _, st := range rescue.AllStatuses {
		byStatus[string(st)] = s.ByStatus[st]
	}
	return AdminStatsDTO{
		PublicStatsDTO: PublicStatsDTO{ImpactDTO: toImpactDTO(s.Impact), ActiveDonors: s.ActiveDonors},
		ByStatus:       byStatus,
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenarioId"`
}

// LoadScenarioResponse reports what a scenario created.
type LoadScenarioResponse struct {
	ScenarioID string `json:"scenarioId"`
	Donors     int    `json:"donors"`
	Requests   int    `json:"requests"`
}
