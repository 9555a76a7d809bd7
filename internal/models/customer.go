package models

import (
	"time"

	"villa-backend/internal/daterange"

	"github.com/shopspring/decimal"
)

// CustomerStatus is the lifecycle state of a stay
type CustomerStatus string

const (
	CustomerStatusActive    CustomerStatus = "active"
	CustomerStatusCompleted CustomerStatus = "completed"
	CustomerStatusCancelled CustomerStatus = "cancelled"
)

// Customer is one booked stay together with its running financial totals.
// TotalAmount and BalanceAmount are derived; see services.CalculateBalance.
type Customer struct {
	ID              int            `json:"id"`
	Name            string         `json:"name"`
	Phone           string         `json:"phone"`
	Email           string         `json:"email"`
	Address         string         `json:"address"`
	VehicleNumber   string         `json:"vehicle_number"`
	IDProofType     string         `json:"id_proof_type"`
	IDProofNumber   string         `json:"id_proof_number"`
	CheckIn         time.Time      `json:"check_in"`
	CheckOut        time.Time      `json:"check_out"` // exclusive
	CheckInTime     string         `json:"check_in_time"`
	CheckOutTime    string         `json:"check_out_time"`
	Occupants       int            `json:"occupants"`
	Status          CustomerStatus `json:"status"`
	Notes           string         `json:"notes"`
	CreatedByUserID int            `json:"created_by_user_id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	StayCharges       decimal.Decimal `json:"stay_charges"`
	CuisineCharges    decimal.Decimal `json:"cuisine_charges"`
	ExtraChargesTotal decimal.Decimal `json:"extra_charges_total"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	ReceivedAmount    decimal.Decimal `json:"received_amount"`
	BalanceAmount     decimal.Decimal `json:"balance_amount"`
}

// Range returns the stay dates as a half-open range
func (c *Customer) Range() daterange.Range {
	return daterange.Range{CheckIn: c.CheckIn, CheckOut: c.CheckOut}
}

// CreateCustomerRequest represents the request body for booking a stay
type CreateCustomerRequest struct {
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	Address        string          `json:"address"`
	VehicleNumber  string          `json:"vehicle_number"`
	IDProofType    string          `json:"id_proof_type"`
	IDProofNumber  string          `json:"id_proof_number"`
	CheckIn        string          `json:"check_in"`  // YYYY-MM-DD
	CheckOut       string          `json:"check_out"` // YYYY-MM-DD
	CheckInTime    string          `json:"check_in_time"`
	CheckOutTime   string          `json:"check_out_time"`
	Occupants      int             `json:"occupants"`
	StayCharges    decimal.Decimal `json:"stay_charges"`
	CuisineCharges decimal.Decimal `json:"cuisine_charges"`
	Notes          string          `json:"notes"`
}

// UpdateCustomerRequest edits identity fields and the base charges. Dates move through UpdateDatesRequest.
type UpdateCustomerRequest struct {
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	Address        string          `json:"address"`
	VehicleNumber  string          `json:"vehicle_number"`
	IDProofType    string          `json:"id_proof_type"`
	IDProofNumber  string          `json:"id_proof_number"`
	CheckInTime    string          `json:"check_in_time"`
	CheckOutTime   string          `json:"check_out_time"`
	Occupants      int             `json:"occupants"`
	StayCharges    decimal.Decimal `json:"stay_charges"`
	CuisineCharges decimal.Decimal `json:"cuisine_charges"`
	Notes          string          `json:"notes"`
}

// UpdateDatesRequest moves a stay to new dates
type UpdateDatesRequest struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

// CustomerFilter narrows customer listings
type CustomerFilter struct {
	Status CustomerStatus `json:"status"`
	Search string         `json:"search"` // name or phone
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
