package domain

// Journey is one leg of a flight itinerary.
type Journey struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	Date string `json:"date,omitempty"`
}

// DateField is a named date-bearing field, kept as the stored string.
type DateField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SearchableRecord is the common shape every booking variant is projected
// into. Filter predicates only ever read these fields; Raw is kept for the
// catch-all search, display and write-back.
type SearchableRecord struct {
	BookingType BookingType `json:"bookingType"`
	TicketID    string      `json:"ticketId,omitempty"`
	StorageID   string      `json:"_id,omitempty"`

	TravelerName  string `json:"travelerName,omitempty"`
	AgentName     string `json:"agentName,omitempty"`
	BookingAgent  string `json:"bookingAgent,omitempty"`
	BookingEntity string `json:"bookingEntity,omitempty"`
	ContactNumber string `json:"contactNumber,omitempty"`
	Email         string `json:"email,omitempty"`

	PassportNumber   string `json:"passportNumber,omitempty"`
	InvoiceNumber    string `json:"invoiceNumber,omitempty"`
	CreditNoteNumber string `json:"creditNoteNumber,omitempty"`

	HotelName        string `json:"hotelName,omitempty"`
	City             string `json:"city,omitempty"`
	CheckInLocation  string `json:"checkInLocation,omitempty"`
	CheckOutLocation string `json:"checkOutLocation,omitempty"`

	From            string `json:"from,omitempty"`
	To              string `json:"to,omitempty"`
	Destination     string `json:"destination,omitempty"`
	PickupLocation  string `json:"pickupLocation,omitempty"`
	DropoffLocation string `json:"dropoffLocation,omitempty"`

	SubmittedAt  string      `json:"submittedAt,omitempty"`
	LastModified string      `json:"lastModified,omitempty"`
	Dates        []DateField `json:"dates,omitempty"`
	Journeys     []Journey   `json:"journeyDetails,omitempty"`

	Raw Record `json:"record"`

	// state of the document's own bookingType before Normalize tagged Raw
	tagged     bool
	sourceType any
	sourceHas  bool
}

// Persisted reports whether the record has been stored by the backend.
func (s SearchableRecord) Persisted() bool {
	return s.StorageID != ""
}

// DisplayKey is the identifier shown in result lists.
func (s SearchableRecord) DisplayKey() string {
	if s.TicketID != "" {
		return s.TicketID
	}
	return s.StorageID
}

// BookingTypeLabel returns the display label of the record's type.
func (s SearchableRecord) BookingTypeLabel() string {
	return s.BookingType.Label()
}

// LocalKey is the key handed to the local update callback: ticketId,
// falling back to the storage identifier.
func (s SearchableRecord) LocalKey() string {
	return s.DisplayKey()
}

// SameBooking reports whether two records address the same booking. Both
// sides must be of the same type and share a non-empty ticket key or
// storage id.
func (s SearchableRecord) SameBooking(o SearchableRecord) bool {
	if s.BookingType != o.BookingType {
		return false
	}
	if s.StorageID != "" && s.StorageID == o.StorageID {
		return true
	}
	return s.TicketID != "" && s.TicketID == o.TicketID
}

// Normalize returns the record re-projected from its own Raw document.
func (s SearchableRecord) Normalize() SearchableRecord {
	return Normalize(s.Raw, s.BookingType)
}

// Source returns the document as it was stored, before Normalize set its
// bookingType. It shares values with Raw and must not be modified.
func (s SearchableRecord) Source() Record {
	if !s.tagged {
		return s.Raw
	}
	doc := make(Record, len(s.Raw))
	for k, v := range s.Raw {
		doc[k] = v
	}
	if s.sourceHas {
		doc[FieldBookingType] = s.sourceType
	} else {
		delete(doc, FieldBookingType)
	}
	return doc
}

// variant projects the type-specific part of a raw document.
type variant func(raw Record, out *SearchableRecord)

var variants = map[BookingType]variant{
	Flight:          flightVariant,
	Hotel:           hotelVariant,
	AirportTransfer: groundVariant,
	CarRental:       groundVariant,
	Forex:           forexVariant,
	Visa:            visaVariant,
	Passport:        passportVariant,
	Miscellaneous:   miscVariant,
}

// Normalize maps a raw booking document into its searchable projection.
// It never fails: absent fields stay empty. The booking type is read from
// the document and defaults to fallback (the collection the record came
// from) when missing or unknown. The returned Raw is a copy carrying the
// resolved bookingType, so normalising it again yields the same value.
func Normalize(raw Record, fallback BookingType) SearchableRecord {
	doc := raw.Clone()
	if doc == nil {
		doc = Record{}
	}

	sourceType, sourceHas := doc[FieldBookingType]
	bt, err := ParseBookingType(doc.String(FieldBookingType))
	if err != nil {
		bt = fallback
	}
	if !bt.Valid() {
		bt = Miscellaneous
	}
	tagged := !sourceHas || doc.String(FieldBookingType) != string(bt)
	doc[FieldBookingType] = string(bt)

	out := SearchableRecord{
		BookingType:      bt,
		TicketID:         doc.TicketKey(),
		StorageID:        doc.String(FieldStorageID),
		TravelerName:     doc.String("travelerName"),
		AgentName:        doc.String("agentName"),
		BookingAgent:     doc.String("bookingAgent"),
		BookingEntity:    doc.String("bookingEntity"),
		ContactNumber:    doc.String("contactNumber"),
		Email:            doc.String("email"),
		PassportNumber:   doc.String("passportNumber"),
		InvoiceNumber:    doc.String("invoiceNumber"),
		CreditNoteNumber: doc.String("creditNoteNumber"),
		City:             doc.String("city"),
		SubmittedAt:      doc.String(FieldSubmittedAt),
		LastModified:     doc.String(FieldLastModified),
		Raw:              doc,
		tagged:           tagged,
		sourceType:       sourceType,
		sourceHas:        sourceHas,
	}
	out.addDates(doc, FieldSubmittedAt, "dateOfBooking")

	variants[bt](doc, &out)
	return out
}

func (s *SearchableRecord) addDates(raw Record, fields ...string) {
	for _, f := range fields {
		if v := raw.String(f); v != "" {
			s.Dates = append(s.Dates, DateField{Name: f, Value: v})
		}
	}
}

func flightVariant(raw Record, out *SearchableRecord) {
	out.From = raw.String("from")
	out.To = raw.String("to")
	out.addDates(raw, "departureDate", "returnDate")
	out.Journeys = journeys(raw["journeyDetails"])
}

func hotelVariant(raw Record, out *SearchableRecord) {
	out.HotelName = raw.String("hotelName")
	out.CheckInLocation = raw.String("checkInLocation")
	out.CheckOutLocation = raw.String("checkOutLocation")
	out.addDates(raw, "checkInDate", "checkOutDate")
}

// groundVariant covers airport transfers and car rentals, which share the
// pickup/drop-off shape.
func groundVariant(raw Record, out *SearchableRecord) {
	out.PickupLocation = raw.String("pickupLocation")
	out.DropoffLocation = raw.String("dropoffLocation")
	out.addDates(raw, "pickupDate", "dropoffDate")
}

func forexVariant(raw Record, out *SearchableRecord) {
	out.Destination = firstOf(raw, "destination", "country")
	out.addDates(raw, "departureDate", "returnDate", "exchangeDate")
}

func visaVariant(raw Record, out *SearchableRecord) {
	out.Destination = firstOf(raw, "destination", "country")
	out.addDates(raw, "departureDate", "returnDate")
}

func passportVariant(raw Record, out *SearchableRecord) {
	if out.TravelerName == "" {
		out.TravelerName = raw.String("fullName")
	}
	out.addDates(raw, "dateOfIssue", "dateOfExpiry")
}

func miscVariant(raw Record, out *SearchableRecord) {
	out.Destination = raw.String("destination")
	out.addDates(raw, "bookingDate")
}

func firstOf(raw Record, fields ...string) string {
	for _, f := range fields {
		if v := raw.String(f); v != "" {
			return v
		}
	}
	return ""
}

func journeys(v any) []Journey {
	var list []any
	switch t := v.(type) {
	case []any:
		list = t
	case []map[string]any:
		for _, m := range t {
			list = append(list, m)
		}
	default:
		return nil
	}
	var out []Journey
	for _, item := range list {
		leg, ok := asRecord(item)
		if !ok {
			continue
		}
		out = append(out, Journey{
			From: leg.String("from"),
			To:   leg.String("to"),
			Date: leg.String("date"),
		})
	}
	return out
}

func asRecord(v any) (Record, bool) {
	switch t := v.(type) {
	case Record:
		return t, true
	case map[string]any:
		return Record(t), true
	default:
		return nil, false
	}
}
