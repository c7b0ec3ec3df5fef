package service

import "math"

// Round2 rounds to two decimal places, the precision every derived money
// figure in the catalog is reported at.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// VehicleProfit derives the read-time profit figures for a vehicle.
//
//	profitLoss   = (actualSalePrice ?? listPrice) - (acquisitionCost ?? 0)
//	profitMargin = round(100 * profitLoss / denominator, 2)
//
// where denominator is actualSalePrice when set, listPrice otherwise. A zero
// denominator yields a zero margin instead of dividing by zero. The results
// are virtual attributes, recomputed on every view composition.
func VehicleProfit(listPrice float64, actualSalePrice, acquisitionCost *float64) (profitLoss, profitMargin float64) {
	denominator := listPrice
	if actualSalePrice != nil {
		denominator = *actualSalePrice
	}

	cost := 0.0
	if acquisitionCost != nil {
		cost = *acquisitionCost
	}

	profitLoss = Round2(denominator - cost)
	if denominator == 0 {
		return profitLoss, 0
	}
	profitMargin = Round2(100 * profitLoss / denominator)
	return profitLoss, profitMargin
}
