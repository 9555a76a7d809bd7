package services

import (
	"villa-backend/internal/models"

	"github.com/shopspring/decimal"
)

// CalculateBalance derives the customer's totals from its inputs.
//
//	total   = stay + cuisine + extras
//	balance = total - received
func CalculateBalance(stay, cuisine, extras, received decimal.Decimal) (total, balance decimal.Decimal) {
	total = stay.Add(cuisine).Add(extras)
	balance = total.Sub(received)
	return total, balance
}

// ApplyBalance recomputes TotalAmount and BalanceAmount in place
func ApplyBalance(c *models.Customer) {
	c.TotalAmount, c.BalanceAmount = CalculateBalance(c.StayCharges, c.CuisineCharges, c.ExtraChargesTotal, c.ReceivedAmount)
}
