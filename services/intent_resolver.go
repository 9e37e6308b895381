package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yashrajoria/pharmacy-agent/models"
)

var (
	quantityRe     = regexp.MustCompile(`\b(\d+)\b`)
	orderKeywordRe = regexp.MustCompile(`(?i)(order|buy|get|need|want)|\d`)
)

var greetings = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "namaste": {}, "thanks": {}, "thank you": {},
}

// ResolveIntent reads one utterance against a catalog snapshot. It is pure:
// same text and catalog always give the same Intent.
func ResolveIntent(text string, catalog []models.Product) models.Intent {
	return models.Intent{
		ProductName: ResolveProductName(text, catalog),
		Quantity:    ExtractQuantity(text),
	}
}

// ExtractQuantity returns the first standalone integer in text, at least 1.
func ExtractQuantity(text string) int {
	m := quantityRe.FindStringSubmatch(text)
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// Only overflow gets here.
		return math.MaxInt32
	}
	if n < 1 {
		return 1
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return n
}

// ResolveProductName returns the catalog name mentioned in text, or "".
//
// Pass 1 picks the longest normalized catalog name contained in the
// normalized text. Pass 2, only when pass 1 finds nothing, scores each
// product by how many of its tokens longer than two characters appear in
// the text and takes the best, requiring at least one. Ties go to catalog
// order.
func ResolveProductName(text string, catalog []models.Product) string {
	normalized := models.NormalizeText(text)
	if normalized == "" || len(catalog) == 0 {
		return ""
	}

	best := ""
	bestLen := 0
	for _, p := range catalog {
		name := models.NormalizeText(p.Name)
		if name == "" {
			continue
		}
		if strings.Contains(normalized, name) && len(name) > bestLen {
			best = p.Name
			bestLen = len(name)
		}
	}
	if best != "" {
		return best
	}

	promptTokens := make(map[string]struct{})
	for _, tok := range significantTokens(normalized) {
		promptTokens[tok] = struct{}{}
	}

	bestScore := 0
	for _, p := range catalog {
		score := 0
		for _, tok := range significantTokens(models.NormalizeText(p.Name)) {
			if _, ok := promptTokens[tok]; ok {
				score++
			}
		}
		if score > bestScore {
			best = p.Name
			bestScore = score
		}
	}
	return best
}

func significantTokens(normalized string) []string {
	var out []string
	for _, tok := range strings.Split(normalized, " ") {
		if utf8.RuneCountInString(tok) > 2 {
			out = append(out, tok)
		}
	}
	return out
}

func IsGreeting(text string) bool {
	_, ok := greetings[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// LooksLikeOrder is the cheap pre-filter run before intent resolution.
func LooksLikeOrder(text string) bool {
	t := strings.TrimSpace(text)
	return t != "" && orderKeywordRe.MatchString(t)
}
