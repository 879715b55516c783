package model

import "math"

// RoundUpToStep rounds value up to the nearest multiple of step.
// A step of zero or less passes the value through unchanged.
func RoundUpToStep(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	return math.Ceil(value/step) * step
}

// SuggestedSellPrice derives a sell price from a buy price by applying the
// markup percentage and rounding up to the price step. Negative buy prices
// are treated as zero.
func SuggestedSellPrice(buyPrice, markupPercent, roundStep float64) float64 {
	base := math.Max(0, buyPrice)
	marked := base * (1 + markupPercent/100)
	return RoundUpToStep(marked, roundStep)
}
