package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var noteColumnNeedles = []string{"примеч", "прим.", "коммент", "note", "remark"}

var (
	decimalOnlyRe    = regexp.MustCompile(`^[0-9]+[.,][0-9]+$`)
	trailingZeroRe   = regexp.MustCompile(`^[0-9]+\.0+$`)
	mikadoPrefixRe   = regexp.MustCompile(`(?i)^(xmil|xzk)\s*[-_ ]*`)
	spacesHyphensRe  = regexp.MustCompile(`[\s\-]+`)
	noteTotalsMarker = map[string]struct{}{"итого": {}, "итого:": {}, "итог": {}, "итог:": {}}
)

// findColumn returns the index of the first header containing any of the
// needles, probing the needles in priority order. Returns -1 when absent.
func findColumn(headers []string, needles ...string) int {
	normalized := normalizeHeaders(headers)
	for _, needle := range needles {
		for idx, col := range normalized {
			if strings.Contains(col, needle) {
				return idx
			}
		}
	}
	return -1
}

// findColumns returns every header index containing any of the needles,
// in source order.
func findColumns(headers []string, needles []string) []int {
	normalized := normalizeHeaders(headers)
	var found []int
	for idx, col := range normalized {
		for _, needle := range needles {
			if strings.Contains(col, needle) {
				found = append(found, idx)
				break
			}
		}
	}
	return found
}

func normalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

// extractNote joins the non-empty note cells of a row, keeping column order
// and dropping duplicates and totals markers.
func extractNote(row []string, noteCols []int) string {
	if len(noteCols) == 0 {
		return ""
	}
	var notes []string
	seen := make(map[string]struct{})
	for _, idx := range noteCols {
		if idx < 0 || idx >= len(row) {
			continue
		}
		val := cleanText(row[idx])
		if val == "" {
			continue
		}
		if _, total := noteTotalsMarker[strings.ToLower(val)]; total {
			continue
		}
		if _, dup := seen[val]; dup {
			continue
		}
		seen[val] = struct{}{}
		notes = append(notes, val)
	}
	return strings.Join(notes, " | ")
}

// cleanText strips non-breaking spaces and surrounding whitespace, and
// treats the spreadsheet "nan" placeholder as empty.
func cleanText(value string) string {
	text := strings.TrimSpace(strings.ReplaceAll(value, "\u00a0", " "))
	if strings.EqualFold(text, "nan") {
		return ""
	}
	return text
}

// toFloat parses a numeric cell tolerating spaces as thousands separators
// and a comma decimal mark. Unparseable values read as zero.
func toFloat(value string) float64 {
	text := cleanText(value)
	if text == "" {
		return 0
	}
	text = strings.ReplaceAll(text, " ", "")
	text = strings.ReplaceAll(text, ",", ".")
	out, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}
	return out
}

// looksLikeArticle filters out totals rows and bare numbers that are really
// amounts spilled into the code column.
func looksLikeArticle(article string) bool {
	clean := strings.ToLower(strings.TrimSpace(article))
	if clean == "" {
		return false
	}
	if strings.HasPrefix(clean, "итого") {
		return false
	}
	return !decimalOnlyRe.MatchString(clean)
}

// cleanArticle normalizes a raw code cell into an importable article.
// sourceType selects source-specific cleanup.
func cleanArticle(value, sourceType string) string {
	text := cleanText(value)
	// Spreadsheets render numeric codes as floats ("12345.0").
	if trailingZeroRe.MatchString(text) {
		text = text[:strings.Index(text, ".")]
	}
	return normalizeArticle(text, sourceType)
}

func normalizeArticle(value, sourceType string) string {
	text := strings.TrimSpace(value)
	if text == "" {
		return ""
	}
	if sourceType == sourceMikadoHTML {
		// The first hyphen segment in Mikado codes is a warehouse prefix:
		// xqwe-GM-1104 -> GM-1104.
		if _, rest, found := strings.Cut(text, "-"); found {
			text = rest
		}
	}
	text = mikadoPrefixRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\t", "")
	text = spacesHyphensRe.ReplaceAllString(text, "")
	return strings.ToUpper(text)
}
