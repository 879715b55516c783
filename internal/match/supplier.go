package match

import (
	"regexp"
	"strings"

	"github.com/ahiokk/tirika-import/internal/model"
)

var supplierNameRe = regexp.MustCompile(`[^0-9a-zа-я]+`)

// NormalizeSupplierName lowercases a supplier name, folds ё to е and strips
// punctuation, leaving space-separated tokens.
func NormalizeSupplierName(value string) string {
	text := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "ё", "е")
	text = supplierNameRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// SupplierMatchScore ranks how well a supplier name matches a detected hint.
// Exact beats prefix beats substring beats token overlap; zero means no match.
func SupplierMatchScore(supplierName, target string) int {
	if supplierName == "" || target == "" {
		return 0
	}
	if supplierName == target {
		return 300
	}
	if strings.HasPrefix(supplierName, target) || strings.HasPrefix(target, supplierName) {
		return 220
	}
	if strings.Contains(supplierName, target) {
		return 140
	}

	supplierTokens := tokenSet(supplierName)
	targetTokens := tokenSet(target)
	if len(supplierTokens) == 0 || len(targetTokens) == 0 {
		return 0
	}
	overlap := false
	subset := true
	for token := range targetTokens {
		if _, ok := supplierTokens[token]; ok {
			overlap = true
		} else {
			subset = false
		}
	}
	if !overlap {
		return 0
	}
	if subset {
		return 110
	}
	return 70
}

// BestSupplier picks the supplier best matching the invoice hint. Among
// equal scores the name closest in length to the hint wins.
func BestSupplier(suppliers []model.Reference, hint string) (model.Reference, bool) {
	target := NormalizeSupplierName(hint)
	if target == "" {
		return model.Reference{}, false
	}

	best := model.Reference{}
	bestScore := 0
	bestLenDelta := int(^uint(0) >> 1)
	for _, ref := range suppliers {
		name := NormalizeSupplierName(ref.Name)
		score := SupplierMatchScore(name, target)
		if score <= 0 {
			continue
		}
		lenDelta := len(name) - len(target)
		if lenDelta < 0 {
			lenDelta = -lenDelta
		}
		if score > bestScore || (score == bestScore && lenDelta < bestLenDelta) {
			best = ref
			bestScore = score
			bestLenDelta = lenDelta
		}
	}
	return best, bestScore > 0
}

func tokenSet(value string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, token := range strings.Fields(value) {
		out[token] = struct{}{}
	}
	return out
}
