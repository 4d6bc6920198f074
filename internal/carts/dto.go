package carts

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
)

// AddLineInput adds (or tops up) one offer in the user's active cart.
type AddLineInput struct {
	UserID   uuid.UUID
	OfferID  uuid.UUID
	Quantity int
}

// RemoveLineInput drops one line from the user's cart.
type RemoveLineInput struct {
	UserID uuid.UUID
	CartID uuid.UUID
	LineID uuid.UUID
}

// sumLines computes the cart total as the banker's-rounded sum of line
// subtotals.
func sumLines(lines []models.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal)
	}
	return total.RoundBank(2)
}
