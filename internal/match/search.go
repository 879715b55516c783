package match

import (
	"sort"
	"strings"

	"github.com/ahiokk/tirika-import/internal/model"
)

// Search scores every catalog product against a free-text query. An empty
// query browses the catalog in id order. Results are sorted by score
// descending and capped at limit.
func (m *Matcher) Search(query string, limit int) []model.MatchCandidate {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		ids := make([]int64, 0, len(m.catalog))
		for id := range m.catalog {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		if len(ids) > limit {
			ids = ids[:limit]
		}
		out := make([]model.MatchCandidate, 0, len(ids))
		for _, id := range ids {
			out = append(out, candidateFromGood(m.catalog[id], "browse", 0))
		}
		return out
	}

	qNormName := NormalizeName(query)
	qAlnum := NormalizeCodeAlnum(query)

	var items []model.MatchCandidate
	for _, good := range m.catalog {
		score := 0.0
		method := "search"

		switch {
		case strings.Contains(strings.ToLower(good.ProductCode), q):
			score = 1.0
			method = "search_code"
		case qAlnum != "" && strings.Contains(NormalizeCodeAlnum(good.ProductCode), qAlnum):
			score = 0.95
			method = "search_code_alnum"
		default:
			normName := m.normNames[good.GoodID]
			if qNormName != "" && strings.Contains(normName, qNormName) {
				score = 0.9
				method = "search_name"
			} else {
				prefix := normName
				if maxLen := 2 * len([]rune(qNormName)); len([]rune(prefix)) > maxLen {
					prefix = string([]rune(prefix)[:maxLen])
				}
				if ratio := SequenceRatio(qNormName, prefix); ratio >= 0.35 {
					score = ratio
					method = "search_fuzzy"
				}
			}
		}

		if score > 0 {
			items = append(items, candidateFromGood(good, method, score))
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].GoodID < items[j].GoodID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
