package service

import (
	"math"

	"github.com/rubicondrive/dealerdesk/internal/sale/domain"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// deriveFinancials recomputes every derived money field from the inputs.
// Discounts never push the taxable base below zero.
func deriveFinancials(tx *domain.SalesTransaction) {
	tx.GrossPrice = round2(tx.SalePrice)

	base := tx.GrossPrice - tx.Discount
	if base < 0 {
		base = 0
	}

	tx.TaxAmount = round2(base * tx.TaxRate)
	tx.TotalPrice = round2(base + tx.TaxAmount)

	if tx.CostOfGoods != nil {
		margin := round2(tx.SalePrice - *tx.CostOfGoods)
		tx.Margin = &margin
	} else {
		tx.Margin = nil
	}
}
