package domain

import (
	"fmt"
	"strings"
)

// BookingType discriminates the record shapes handled by the back office.
// It is immutable once a record has been created.
type BookingType string

const (
	Flight          BookingType = "flight"
	Hotel           BookingType = "hotel"
	AirportTransfer BookingType = "airport_transfer"
	CarRental       BookingType = "car_rental"
	Forex           BookingType = "forex"
	Visa            BookingType = "visa"
	Passport        BookingType = "passport"
	Miscellaneous   BookingType = "miscellaneous"
)

// SearchOrder is the fixed order in which per-type results are concatenated.
// Passport records are excluded from search and export by product policy.
var SearchOrder = []BookingType{
	Flight,
	Hotel,
	AirportTransfer,
	CarRental,
	Forex,
	Visa,
	Miscellaneous,
}

// AllBookingTypes lists every known type, passport included.
var AllBookingTypes = append(append([]BookingType{}, SearchOrder...), Passport)

// bookingTypeInfo holds the per-type registry data.
type bookingTypeInfo struct {
	resource string // remote collection path segment
	prefix   string // conventional ticketId prefix
	label    string // human label
}

var registry = map[BookingType]bookingTypeInfo{
	Flight:          {resource: "flight-bookings", prefix: "FLT-", label: "Flight"},
	Hotel:           {resource: "hotel-bookings", prefix: "HTL-", label: "Hotel"},
	AirportTransfer: {resource: "airport-transfer-bookings", prefix: "TRF-", label: "Airport Transfer"},
	CarRental:       {resource: "car-rental-bookings", prefix: "CAR-", label: "Car Rental"},
	Forex:           {resource: "forex-bookings", prefix: "FX-", label: "Forex"},
	Visa:            {resource: "visa-bookings", prefix: "VISA-", label: "Visa"},
	Passport:        {resource: "passport-bookings", prefix: "", label: "Passport"},
	Miscellaneous:   {resource: "miscellaneous-bookings", prefix: "MISC-", label: "Miscellaneous"},
}

// ParseBookingType accepts the canonical names plus the hyphenated forms
// used in URLs ("airport-transfer", "car-rental").
func ParseBookingType(s string) (BookingType, error) {
	t := BookingType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if _, ok := registry[t]; !ok {
		return "", fmt.Errorf("unknown booking type: %q", s)
	}
	return t, nil
}

// Valid reports whether t is a known booking type.
func (t BookingType) Valid() bool {
	_, ok := registry[t]
	return ok
}

// Resource returns the remote collection name, e.g. "car-rental-bookings".
func (t BookingType) Resource() string {
	return registry[t].resource
}

// TicketPrefix returns the conventional ticketId prefix for the type.
func (t BookingType) TicketPrefix() string {
	return registry[t].prefix
}

// Label returns the display label, e.g. "Airport Transfer".
func (t BookingType) Label() string {
	if info, ok := registry[t]; ok {
		return info.label
	}
	return "Unknown"
}

// Searchable reports whether records of this type take part in federated search.
func (t BookingType) Searchable() bool {
	return t.Valid() && t != Passport
}

// ConnectivityMode says which channel a session reads and writes through.
type ConnectivityMode string

const (
	ModeRemote ConnectivityMode = "remote"
	ModeLocal  ConnectivityMode = "local"
)

// Label returns the indicator text shown by the search screen.
func (m ConnectivityMode) Label() string {
	if m == ModeRemote {
		return "Backend Connected"
	}
	return "Using Local Data"
}
