package services

import "github.com/yashrajoria/pharmacy-agent/models"

const (
	// UnresolvedScore is the floor used when no product could be looked at.
	UnresolvedScore = 25

	scoreBase           = 40
	scoreApproved       = 30
	scoreStockCovers    = 20
	scoreNoPrescription = 10
)

// SuggestionScore rates how good a suggestion was, 0..100. It is computed
// once per run and frozen.
func SuggestionScore(d models.Decision) int {
	if d.Product == nil {
		return UnresolvedScore
	}
	score := scoreBase
	if d.Approved() {
		score += scoreApproved
	}
	if d.Product.Stock >= d.Quantity {
		score += scoreStockCovers
	}
	if !d.Product.RequiresPrescription {
		score += scoreNoPrescription
	}
	return clampScore(score)
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
