package rescue

import (
	"strings"
)

// Validation messages shown to end users.
const (
	MsgMissingFields      = "Missing required fields"
	MsgInvalidTimeWindow  = "Invalid pickup time window"
	MsgWeightTooLow       = "Estimated weight must be at least 1 lb"
	MsgActualWeightTooLow = "Actual weight must be greater than 0"
)

// MinEstimatedWeight is the smallest donation accepted, in pounds.
const MinEstimatedWeight = 1.0

// Validate checks a submission. Missing fields are reported before
// malformed ones.
func (in PickupInput) Validate() error {
	switch {
	case in.DonorID == "":
		return &ValidationError{Field: "donorId", Message: MsgMissingFields}
	case strings.TrimSpace(in.FoodDescription) == "":
		return &ValidationError{Field: "foodDescription", Message: MsgMissingFields}
	case in.EstimatedWeight == 0:
		return &ValidationError{Field: "estimatedWeight", Message: MsgMissingFields}
	case !in.PickupAddress.complete():
		return &ValidationError{Field: "pickupAddress", Message: MsgMissingFields}
	case in.PickupDate.IsZero():
		return &ValidationError{Field: "pickupDate", Message: MsgMissingFields}
	case in.PickupTimeWindow == "":
		return &ValidationError{Field: "pickupTimeWindow", Message: MsgMissingFields}
	case strings.TrimSpace(in.ContactOnArrival) == "":
		return &ValidationError{Field: "contactOnArrival", Message: MsgMissingFields}
	}

	if !in.PickupTimeWindow.Valid() {
		return &ValidationError{Field: "pickupTimeWindow", Message: MsgInvalidTimeWindow}
	}
	if in.EstimatedWeight < MinEstimatedWeight {
		return &ValidationError{Field: "estimatedWeight", Message: MsgWeightTooLow}
	}
	return nil
}

// Validate checks profile fields the way the signup form does.
func (p DonorProfile) Validate() error {
	switch {
	case strings.TrimSpace(p.BusinessName) == "":
		return &ValidationError{Field: "businessName", Message: "Business name is required"}
	case strings.TrimSpace(p.ContactName) == "":
		return &ValidationError{Field: "contactName", Message: "Contact name is required"}
	case strings.TrimSpace(p.Address.Street) == "":
		return &ValidationError{Field: "address.street", Message: "Street address is required"}
	case strings.TrimSpace(p.Address.City) == "":
		return &ValidationError{Field: "address.city", Message: "City is required"}
	case len(strings.TrimSpace(p.Address.State)) < 2:
		return &ValidationError{Field: "address.state", Message: "State is required"}
	case !allDigits(p.Address.Zip, 5):
		return &ValidationError{Field: "address.zip", Message: "ZIP code must be 5 digits"}
	case !allDigits(NormalizePhone(p.Phone), 10):
		return &ValidationError{Field: "phone", Message: "Phone number must be 10 digits"}
	case !p.BusinessType.Valid():
		return &ValidationError{Field: "businessType", Message: "Please select a business type"}
	}
	return nil
}

// NormalizePhone strips everything but digits.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (p DonorProfile) normalized() DonorProfile {
	p.BusinessName = strings.TrimSpace(p.BusinessName)
	p.ContactName = strings.TrimSpace(p.ContactName)
	p.Phone = NormalizePhone(p.Phone)
	p.Address.Street = strings.TrimSpace(p.Address.Street)
	p.Address.City = strings.TrimSpace(p.Address.City)
	p.Address.State = strings.ToUpper(strings.TrimSpace(p.Address.State))
	p.Address.Zip = strings.TrimSpace(p.Address.Zip)
	return p
}
