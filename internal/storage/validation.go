package storage

import (
	"fmt"
	"strings"

	"github.com/ahiokk/tirika-import/internal/common"
	"github.com/ahiokk/tirika-import/internal/model"
)

// NormalizeArticle prepares a supplier article for storage as a product code:
// uppercase, no whitespace or separator characters, known distributor
// prefixes stripped, capped at 20 characters.
func NormalizeArticle(article string) string {
	s := strings.TrimSpace(article)
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\t", "")
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	for _, prefix := range []string{"XMIL", "XZK"} {
		if strings.HasPrefix(s, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	if runes := []rune(s); len(runes) > 20 {
		s = string(runes[:20])
	}
	return s
}

// NormalizeTextField collapses internal whitespace, trims the value and caps
// it at maxLen runes.
func NormalizeTextField(value string, maxLen int) string {
	s := strings.Join(strings.Fields(value), " ")
	if runes := []rune(s); len(runes) > maxLen {
		s = string(runes[:maxLen])
	}
	return s
}

// validateLines normalizes and filters the invoice lines down to the
// importable set. Invalid lines are dropped with a per-line warning rather
// than failing the whole import; only an empty survivor set is fatal.
// Returned lines are copies, so the caller's invoice stays untouched until
// the import commits.
func validateLines(invoice *model.ParsedInvoice, opts model.ImportOptions) (valid []model.InvoiceLine, skipped int, warnings []string, err error) {
	for _, src := range invoice.Lines {
		line := src.Clone()
		if line.Warning != "" {
			warnings = append(warnings, fmt.Sprintf("Строка %d: %s", line.LineNo, line.Warning))
		}
		if line.Action == model.ActionSkip {
			skipped++
			continue
		}

		line.Article = NormalizeArticle(line.Article)
		code := line.MatchedProductCode
		if code == "" {
			code = line.Article
		}
		line.MatchedProductCode = NormalizeArticle(code)
		name := line.MatchedName
		if name == "" {
			name = line.Name
		}
		line.MatchedName = NormalizeTextField(name, 120)
		if line.SellPrice == nil {
			line.SellPrice = model.Float64Ptr(model.SuggestedSellPrice(line.Price, opts.MarkupPercent, opts.RoundStep))
		}

		if line.Quantity <= 0 {
			warnings = append(warnings, fmt.Sprintf("Строка %d: количество <= 0, пропущено.", line.LineNo))
			skipped++
			continue
		}
		if line.Price < 0 {
			warnings = append(warnings, fmt.Sprintf("Строка %d: цена < 0, пропущено.", line.LineNo))
			skipped++
			continue
		}
		if *line.SellPrice < 0 {
			warnings = append(warnings, fmt.Sprintf("Строка %d: продажная цена < 0, пропущено.", line.LineNo))
			skipped++
			continue
		}
		if line.MatchedGoodID == nil && !(opts.CreateMissingGoods && line.Action == model.ActionCreate) {
			warnings = append(warnings, fmt.Sprintf("Строка %d: товар не сопоставлен и не отмечен к созданию.", line.LineNo))
			skipped++
			continue
		}
		valid = append(valid, line)
	}

	if len(valid) == 0 {
		return nil, skipped, warnings, common.WrapValidationError(common.ErrNoValidLines, "Нет валидных строк для импорта.")
	}
	return valid, skipped, warnings, nil
}
