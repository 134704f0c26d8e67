package notify

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/harvestlink/rescue-engine/rescue"
)

// Alert is everything a channel needs to announce a new request.
type Alert struct {
	Request rescue.PickupRequest
	Donor   rescue.Donor
}

// Digest summarises requests still awaiting triage.
type Digest struct {
	GeneratedAt time.Time
	Pending     []DigestItem
}

// DigestItem is one pending request with its donor's name resolved.
type DigestItem struct {
	Request      rescue.PickupRequest
	BusinessName string
}

// FormatPickupDate renders a date the long way, e.g. "Saturday, June 1, 2024".
func FormatPickupDate(t time.Time) string {
	return t.Format("Monday, January 2, 2006")
}

// FormatWeight renders an estimate like "~40 lbs".
func FormatWeight(lbs float64) string {
	return "~" + strconv.FormatFloat(lbs, 'f', -1, 64) + " lbs"
}

// MapsURL links to a map search for the address.
func MapsURL(a rescue.Address) string {
	return "https://maps.google.com/?q=" + url.QueryEscape(a.String())
}

// PlainText renders the alert without markup, for channels that don't
// support rich layouts.
func (a Alert) PlainText() string {
	r := a.Request
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 New Pickup Request\n")
	fmt.Fprintf(&b, "%s has food ready for rescue!\n\n", a.Donor.BusinessName)
	fmt.Fprintf(&b, "Food: %s\n", r.FoodDescription)
	fmt.Fprintf(&b, "Estimated Weight: %s\n", FormatWeight(r.EstimatedWeight))
	fmt.Fprintf(&b, "Pickup Date: %s\n", FormatPickupDate(r.PickupDate))
	fmt.Fprintf(&b, "Time Window: %s\n", r.PickupTimeWindow.Label())
	fmt.Fprintf(&b, "Address: %s\n%s\n", r.PickupAddress.String(), MapsURL(r.PickupAddress))
	fmt.Fprintf(&b, "Contact: %s\n", a.Donor.ContactName)
	fmt.Fprintf(&b, "On Arrival: %s\n", r.ContactOnArrival)
	if r.SpecialInstructions != "" {
		fmt.Fprintf(&b, "Special Instructions: %s\n", r.SpecialInstructions)
	}
	fmt.Fprintf(&b, "\nRequest ID: %s", r.ID)
	return b.String()
}

// PlainText renders the digest as one line per request.
func (d Digest) PlainText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 %d pickup request(s) awaiting confirmation\n", len(d.Pending))
	for _, item := range d.Pending {
		r := item.Request
		fmt.Fprintf(&b, "• %s: %s (%s) on %s, %s\n",
			item.BusinessName, r.FoodDescription, FormatWeight(r.EstimatedWeight),
			FormatPickupDate(r.PickupDate), r.PickupTimeWindow.Label())
	}
	return strings.TrimRight(b.String(), "\n")
}
