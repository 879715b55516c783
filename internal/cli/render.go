package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ahiokk/tirika-import/internal/model"
	"github.com/ahiokk/tirika-import/internal/service"
)

// StatusText maps a match status to its user-facing label.
func StatusText(status model.MatchStatus) string {
	switch status {
	case model.StatusExact:
		return "Найден"
	case model.StatusManual:
		return "Выбран вручную"
	case model.StatusFuzzy:
		return "По названию"
	case model.StatusHint:
		return "Похожий (1 вариант)"
	case model.StatusAmbiguous:
		return "Несколько совпадений"
	case model.StatusNotFound:
		return "Не найден"
	default:
		return string(status)
	}
}

func statusStyle(status model.MatchStatus) func(...string) string {
	switch status {
	case model.StatusExact, model.StatusManual:
		return statusMatchedStyle.Render
	case model.StatusFuzzy:
		return statusFuzzyStyle.Render
	case model.StatusAmbiguous, model.StatusHint:
		return statusAmbiguousStyle.Render
	case model.StatusNotFound:
		return statusNotFoundStyle.Render
	default:
		return SubtleStyle.Render
	}
}

// RenderLineTable renders the review table of invoice lines.
func RenderLineTable(lines []model.InvoiceLine) string {
	var b strings.Builder
	header := fmt.Sprintf("%-4s %-18s %-34s %8s %10s %10s %-8s %-20s",
		"#", "Артикул", "Название", "Кол-во", "Закупка", "Продажа", "Действие", "Статус")
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")

	for _, line := range lines {
		sell := "-"
		if line.SellPrice != nil {
			sell = formatNumber(*line.SellPrice, 2)
		}
		name := line.Name
		if runes := []rune(name); len(runes) > 34 {
			name = string(runes[:33]) + "…"
		}
		status := StatusText(line.MatchStatus)
		if line.MatchedGoodID != nil {
			status += fmt.Sprintf(" [%d]", *line.MatchedGoodID)
		}
		row := fmt.Sprintf("%-4d %-18s %-34s %8s %10s %10s %-8s %-20s",
			line.LineNo, line.Article, name,
			formatNumber(line.Quantity, 3), formatNumber(line.Price, 2), sell,
			string(line.Action), status)
		b.WriteString(statusStyle(line.MatchStatus)(row))
		b.WriteString("\n")

		if line.Warning != "" {
			b.WriteString(SubtleStyle.Render("     " + line.Warning))
			b.WriteString("\n")
		}
		if line.PriceAlert && line.SellPriceDiffPercent != nil {
			b.WriteString(WarningStyle.Render(fmt.Sprintf("     Расхождение продажи: %.1f%%", *line.SellPriceDiffPercent)))
			b.WriteString("\n")
		}
		if line.SimilarArticles != "" && line.MatchedGoodID == nil {
			b.WriteString(SubtleStyle.Render("     Похожие: " + line.SimilarArticles))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderSummary renders the per-status counters of a review session.
func RenderSummary(sum service.Summary) string {
	return fmt.Sprintf(
		"Строк: %d | Найдено: %d | По названию: %d | Неоднозначно: %d | Не найдено: %d | "+
			"К созданию: %d | Пропущено: %d | Цена-красных: %d | Сумма накладной: %s",
		sum.Total, sum.Matched, sum.Fuzzy, sum.Ambiguous, sum.NotFound,
		sum.ToCreate, sum.Skipped, sum.PriceAlerts, formatNumber(sum.TotalSum, 2))
}

// RenderImportResult renders the outcome of one import call.
func RenderImportResult(result *model.ImportResult) string {
	var b strings.Builder
	if result.DryRun {
		b.WriteString(FormatInfo("Пробный прогон завершен, изменения откатаны."))
	} else if result.WaybillID != nil {
		b.WriteString(FormatSuccess(fmt.Sprintf("Импорт завершен, накладная #%d.", *result.WaybillID)))
	} else {
		b.WriteString(FormatSuccess("Импорт завершен."))
	}
	b.WriteString("\n")
	b.WriteString(BoldStyle.Render(fmt.Sprintf("Импортировано строк: %d | Пропущено: %d | Создано товаров: %d | Сумма: %s",
		result.ImportedLines, result.SkippedLines, result.CreatedGoods, formatNumber(result.TotalCost, 2))))
	b.WriteString("\n")
	if result.BackupPath != "" {
		b.WriteString(SubtleStyle.Render("Backup: " + result.BackupPath))
		b.WriteString("\n")
	}
	for _, warning := range result.Warnings {
		b.WriteString(FormatWarning(warning))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderReferences renders an id/name reference list.
func RenderReferences(title string, refs []model.Reference) string {
	var b strings.Builder
	b.WriteString(FormatTitle(title))
	b.WriteString("\n")
	for _, ref := range refs {
		b.WriteString(fmt.Sprintf("  %6d  %s\n", ref.ID, ref.Name))
	}
	if len(refs) == 0 {
		b.WriteString(SubtleStyle.Render("  (пусто)"))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderCandidates renders catalog search results.
func RenderCandidates(candidates []model.MatchCandidate) string {
	var b strings.Builder
	for _, cand := range candidates {
		code := cand.ProductCode
		if code == "" {
			code = "без кода"
		}
		b.WriteString(fmt.Sprintf("  %6d  %-20s %-40s закупка %s, продажа %s, остаток %s (%.2f %s)\n",
			cand.GoodID, code, cand.Name,
			formatNumber(cand.BuyPrice, 2), formatNumber(cand.SellPrice, 2),
			formatNumber(cand.Remainder, 3), cand.Score, cand.MatchMethod))
	}
	if len(candidates) == 0 {
		b.WriteString(SubtleStyle.Render("  Ничего не найдено."))
		b.WriteString("\n")
	}
	return b.String()
}

// formatNumber trims trailing zeros off a fixed-precision rendering.
func formatNumber(v float64, precision int) string {
	s := strconv.FormatFloat(v, 'f', precision, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
