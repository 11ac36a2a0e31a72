package seed

// File is the on-disk seed layout: booking type name to its records, in
// collection order. Type names accept the hyphenated URL forms.
//
//	flight:
//	  - ticketId: FLT-1001
//	    travelerName: Asha Rao
//	car-rental:
//	  - ticketId: CAR-2001
type File map[string][]map[string]any
