// Package normalize reshapes raw AeroAPI payloads into the stable schema
// the frontend expects. All functions are pure: no I/O, no cache access.
package normalize

// Flight is the normalized flight schema served to consumers.
//
// Optional fields are pointers so that absent upstream values serialize
// as explicit nulls; the frontend assumes every field is present. The
// padding block at the bottom holds fields AeroAPI does not return for
// these resources but that consumers of the legacy schema still read.
type Flight struct {
	ID           string  `json:"id"`
	FlightNumber *string `json:"flight_number"`
	Origin       *string `json:"origin"`
	Destination  *string `json:"destination"`

	ActualDepartureGate     *string `json:"actual_departure_gate"`
	ActualArrivalGate       *string `json:"actual_arrival_gate"`
	ActualDepartureTerminal *string `json:"actual_departure_terminal"`
	ActualArrivalTerminal   *string `json:"actual_arrival_terminal"`

	AircraftType *string `json:"aircraft_type"`
	Registration *string `json:"registration"`
	FiledSpeed   *int    `json:"filed_speed"`

	// ISO 8601 timestamps, passed through from upstream.
	ScheduledOut *string `json:"scheduled_out"`
	ScheduledOff *string `json:"scheduled_off"`
	ScheduledOn  *string `json:"scheduled_on"`
	ScheduledIn  *string `json:"scheduled_in"`
	EstimatedOut *string `json:"estimated_out"`
	EstimatedOff *string `json:"estimated_off"`
	EstimatedOn  *string `json:"estimated_on"`
	EstimatedIn  *string `json:"estimated_in"`
	ActualOut    *string `json:"actual_out"`
	ActualOff    *string `json:"actual_off"`
	ActualOn     *string `json:"actual_on"`
	ActualIn     *string `json:"actual_in"`

	// Padding: null unless upstream happens to send them.
	ActualRunwayOff  *string `json:"actual_runway_off"`
	ActualRunwayOn   *string `json:"actual_runway_on"`
	CruisingAltitude *int    `json:"cruising_altitude"`
	FiledGroundSpeed *int    `json:"filed_ground_speed"`
	Hexid            *string `json:"hexid"`
	PredictedIn      *string `json:"predicted_in"`
	PredictedOff     *string `json:"predicted_off"`
	PredictedOn      *string `json:"predicted_on"`
	PredictedOut     *string `json:"predicted_out"`
	Status           *string `json:"status"`
	TrueCancel       *bool   `json:"true_cancel"`
}

// rawFlight mirrors the upstream field names before renaming.
type rawFlight struct {
	FaFlightID string  `json:"fa_flight_id"`
	Ident      *string `json:"ident"`

	// Position-only flights carry null here instead of an object.
	Origin      *rawAirport `json:"origin"`
	Destination *rawAirport `json:"destination"`

	GateOrigin          *string `json:"gate_origin"`
	GateDestination     *string `json:"gate_destination"`
	TerminalOrigin      *string `json:"terminal_origin"`
	TerminalDestination *string `json:"terminal_destination"`

	AircraftType  *string `json:"aircraft_type"`
	Registration  *string `json:"registration"`
	FiledAirspeed *int    `json:"filed_airspeed"`

	ScheduledOut *string `json:"scheduled_out"`
	ScheduledOff *string `json:"scheduled_off"`
	ScheduledOn  *string `json:"scheduled_on"`
	ScheduledIn  *string `json:"scheduled_in"`
	EstimatedOut *string `json:"estimated_out"`
	EstimatedOff *string `json:"estimated_off"`
	EstimatedOn  *string `json:"estimated_on"`
	EstimatedIn  *string `json:"estimated_in"`
	ActualOut    *string `json:"actual_out"`
	ActualOff    *string `json:"actual_off"`
	ActualOn     *string `json:"actual_on"`
	ActualIn     *string `json:"actual_in"`

	ActualRunwayOff  *string `json:"actual_runway_off"`
	ActualRunwayOn   *string `json:"actual_runway_on"`
	CruisingAltitude *int    `json:"cruising_altitude"`
	FiledGroundSpeed *int    `json:"filed_ground_speed"`
	Hexid            *string `json:"hexid"`
	PredictedIn      *string `json:"predicted_in"`
	PredictedOff     *string `json:"predicted_off"`
	PredictedOn      *string `json:"predicted_on"`
	PredictedOut     *string `json:"predicted_out"`
	Status           *string `json:"status"`
	TrueCancel       *bool   `json:"true_cancel"`
}

// rawAirport is the origin/destination object before flattening.
type rawAirport struct {
	Code *string `json:"code"`
}

// flatten converts a raw upstream flight into the normalized schema:
// fields are renamed (ident -> flight_number, fa_flight_id -> id, gates
// and terminals to their actual_* names), origin/destination collapse to
// their bare airport code, and everything else carries over.
func (r rawFlight) flatten() Flight {
	f := Flight{
		ID:           r.FaFlightID,
		FlightNumber: r.Ident,

		ActualDepartureGate:     r.GateOrigin,
		ActualArrivalGate:       r.GateDestination,
		ActualDepartureTerminal: r.TerminalOrigin,
		ActualArrivalTerminal:   r.TerminalDestination,

		AircraftType: r.AircraftType,
		Registration: r.Registration,
		FiledSpeed:   r.FiledAirspeed,

		ScheduledOut: r.ScheduledOut,
		ScheduledOff: r.ScheduledOff,
		ScheduledOn:  r.ScheduledOn,
		ScheduledIn:  r.ScheduledIn,
		EstimatedOut: r.EstimatedOut,
		EstimatedOff: r.EstimatedOff,
		EstimatedOn:  r.EstimatedOn,
		EstimatedIn:  r.EstimatedIn,
		ActualOut:    r.ActualOut,
		ActualOff:    r.ActualOff,
		ActualOn:     r.ActualOn,
		ActualIn:     r.ActualIn,

		ActualRunwayOff:  r.ActualRunwayOff,
		ActualRunwayOn:   r.ActualRunwayOn,
		CruisingAltitude: r.CruisingAltitude,
		FiledGroundSpeed: r.FiledGroundSpeed,
		Hexid:            r.Hexid,
		PredictedIn:      r.PredictedIn,
		PredictedOff:     r.PredictedOff,
		PredictedOn:      r.PredictedOn,
		PredictedOut:     r.PredictedOut,
		Status:           r.Status,
		TrueCancel:       r.TrueCancel,
	}

	if r.Origin != nil {
		f.Origin = r.Origin.Code
	}
	if r.Destination != nil {
		f.Destination = r.Destination.Code
	}

	return f
}
