package services_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yashrajoria/pharmacy-agent/models"
	"github.com/yashrajoria/pharmacy-agent/services"
)

func catalogOf(names ...string) []models.Product {
	out := make([]models.Product, len(names))
	for i, n := range names {
		out[i] = models.Product{Name: n, Stock: 10, UnitPrice: 1}
	}
	return out
}

func TestExtractQuantity(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"I need 3 ParacetamolXL", 3},
		{"need paracetamol", 1},
		{"0 pills please", 1},
		{"need ParacetamolXL500", 1},
		{"give me 2 or 5", 2},
		{"order 99999999999999999999 boxes", math.MaxInt32},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, services.ExtractQuantity(tt.text), tt.text)
	}
}

func TestResolveProductName_LongestSubstringWins(t *testing.T) {
	catalog := catalogOf("Vitamin C", "Vitamin C 1000")

	assert.Equal(t, "Vitamin C 1000", services.ResolveProductName("need 2 vitamin-c 1000!", catalog))
	assert.Equal(t, "Vitamin C", services.ResolveProductName("need vitamin c", catalog))
}

func TestResolveProductName_TokenOverlap(t *testing.T) {
	catalog := catalogOf("Paracetamol", "Cough Syrup Honey")

	assert.Equal(t, "Cough Syrup Honey", services.ResolveProductName("buy honey syrup", catalog))
}

func TestResolveProductName_TieGoesToCatalogOrder(t *testing.T) {
	catalog := catalogOf("Zinc Tablets", "Iron Tablets")

	assert.Equal(t, "Zinc Tablets", services.ResolveProductName("need tablets", catalog))
}

func TestResolveProductName_ShortTokensIgnored(t *testing.T) {
	catalog := catalogOf("Vitamin C")

	assert.Equal(t, "", services.ResolveProductName("c c c", catalog))
}

func TestResolveProductName_NoMatch(t *testing.T) {
	assert.Equal(t, "", services.ResolveProductName("need aspirin", catalogOf("Paracetamol")))
	assert.Equal(t, "", services.ResolveProductName("need aspirin", nil))
	assert.Equal(t, "", services.ResolveProductName("?!", catalogOf("Paracetamol")))
}

func TestResolveIntent_SubstringPassResultIsContained(t *testing.T) {
	catalog := catalogOf("ParacetamolXL", "Ibuprofen 400", "Cetirizine")
	prompts := []string{
		"I need 3 ParacetamolXL",
		"IBUPROFEN 400, two boxes",
		"cetirizine please",
	}
	for _, p := range prompts {
		intent := services.ResolveIntent(p, catalog)
		assert.True(t, intent.Resolved(), p)
		assert.True(t, strings.Contains(models.NormalizeText(p), models.NormalizeText(intent.ProductName)), p)
	}
}

func TestResolveIntent_Deterministic(t *testing.T) {
	catalog := catalogOf("Zinc Tablets", "Iron Tablets", "Vitamin C")
	first := services.ResolveIntent("need 4 tablets", catalog)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, services.ResolveIntent("need 4 tablets", catalog))
	}
}

func TestGreetingAndOrderFilter(t *testing.T) {
	assert.True(t, services.IsGreeting(" Hello "))
	assert.True(t, services.IsGreeting("thank you"))
	assert.False(t, services.IsGreeting("hello, I need 2 paracetamol"))

	assert.True(t, services.LooksLikeOrder("2 paracetamol"))
	assert.True(t, services.LooksLikeOrder("I want cetirizine"))
	assert.False(t, services.LooksLikeOrder("what is this"))
	assert.False(t, services.LooksLikeOrder("  "))
}
