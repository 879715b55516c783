// Package match resolves invoice lines against the goods catalog.
package match

import (
	"regexp"
	"strings"
)

var (
	reCodeAlnum = regexp.MustCompile(`[^0-9a-zа-я]+`)
	reNameWord  = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// Known legacy warehouse prefixes on supplier articles.
var legacyArticlePrefixes = []string{"xmil-", "xzk-", "xkl-", "xgsp-", "xtrw-", "xms-"}

// NormalizeCode produces the exact-match key for a code: trimmed, lowercased.
func NormalizeCode(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// NormalizeCodeAlnum produces the loose-match key for a code: lowercased
// with everything outside latin/cyrillic letters and digits stripped.
func NormalizeCodeAlnum(value string) string {
	return reCodeAlnum.ReplaceAllString(NormalizeCode(value), "")
}

// NormalizeName prepares a product name for fuzzy comparison: lowercased,
// with runs of non-word characters collapsed to single spaces.
func NormalizeName(value string) string {
	lowered := strings.ToLower(strings.TrimSpace(value))
	spaced := reNameWord.ReplaceAllString(lowered, " ")
	return strings.Join(strings.Fields(spaced), " ")
}

// ArticleVariants expands a raw article into the strings worth probing in
// the secondary-code indexes: the raw value, the value with a known legacy
// warehouse prefix stripped, hyphen-derived tails, and the alnum form.
func ArticleVariants(article string) []string {
	raw := strings.TrimSpace(article)
	if raw == "" {
		return nil
	}

	variants := []string{raw}
	lowered := strings.ToLower(raw)
	for _, prefix := range legacyArticlePrefixes {
		if strings.HasPrefix(lowered, prefix) {
			variants = append(variants, raw[len(prefix):])
		}
	}

	if strings.Contains(raw, "-") {
		if _, right, ok := strings.Cut(raw, "-"); ok && right != "" {
			variants = append(variants, right)
		}
		var pieces []string
		for _, p := range strings.Split(raw, "-") {
			if p != "" {
				pieces = append(pieces, p)
			}
		}
		if len(pieces) >= 2 {
			variants = append(variants, strings.Join(pieces[len(pieces)-2:], "-"))
		}
	}

	variants = append(variants, NormalizeCodeAlnum(raw))

	seen := make(map[string]struct{}, len(variants))
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		key := strings.TrimSpace(v)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
