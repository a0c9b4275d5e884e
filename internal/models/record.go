package models

import "time"

// Data categories tracked by the change detector. Each maps to one
// spreadsheet file in the staging area.
const (
	CategoryFuelData   = "fuel_data"
	CategoryFlightData = "flight_data"
)

// FlightRecord is one row of flight operations data. FlightNo plus Date is
// the business identifier used by the content-aware comparison.
type FlightRecord struct {
	ID          string    `json:"id" badgerhold:"key" csv:"-"`
	FlightNo    string    `json:"flight_no" csv:"flight_no"`
	Date        string    `json:"date" csv:"date"` // YYYY-MM-DD as exported
	Origin      string    `json:"origin" csv:"origin"`
	Destination string    `json:"destination" csv:"destination"`
	Aircraft    string    `json:"aircraft" csv:"aircraft"`
	Passengers  int       `json:"passengers" csv:"passengers"`
	BlockTime   string    `json:"block_time" csv:"block_time"`
	CreatedAt   time.Time `json:"created_at" csv:"-"`
	UpdatedAt   time.Time `json:"updated_at" csv:"-"`
}

// Key returns the business identifier for snapshot comparison.
func (r *FlightRecord) Key() string {
	return r.FlightNo + "|" + r.Date
}

// FuelRecord is one row of fuel uplift/burn data. FlightID plus Date is the
// business identifier used by the content-aware comparison.
type FuelRecord struct {
	ID         string    `json:"id" badgerhold:"key" csv:"-"`
	FlightID   string    `json:"flight_id" csv:"flight_id"`
	Date       string    `json:"date" csv:"date"`
	Station    string    `json:"station" csv:"station"`
	UpliftKG   float64   `json:"uplift_kg" csv:"uplift_kg"`
	BurnKG     float64   `json:"burn_kg" csv:"burn_kg"`
	DensityKGL float64   `json:"density_kgl" csv:"density_kgl"`
	Supplier   string    `json:"supplier" csv:"supplier"`
	CreatedAt  time.Time `json:"created_at" csv:"-"`
	UpdatedAt  time.Time `json:"updated_at" csv:"-"`
}

// Key returns the business identifier for snapshot comparison.
func (r *FuelRecord) Key() string {
	return r.FlightID + "|" + r.Date
}
