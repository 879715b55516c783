package match

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ahiokk/tirika-import/internal/common"
	"github.com/ahiokk/tirika-import/internal/model"
)

// Index entry origins.
const (
	originProductCode = "product_code"
	originCrossCode   = "cross_code"
	originBarcode     = "barcode"
)

// Candidate list caps.
const (
	codeCandidateLimit = 10
	nameCandidateLimit = 8
	fuzzyAcceptScore   = 0.85
)

type indexEntry struct {
	goodID int64
	origin string
}

// Matcher resolves invoice lines against an immutable catalog snapshot.
// Indexes are built once on construction; reloading the catalog means
// building a new Matcher.
type Matcher struct {
	catalog        map[int64]model.CatalogProduct
	productExact   map[string][]indexEntry
	productAlnum   map[string][]indexEntry
	secondaryExact map[string][]indexEntry
	secondaryAlnum map[string][]indexEntry
	normNames      map[int64]string
}

// New builds the lookup indexes over the catalog snapshot.
func New(catalog map[int64]model.CatalogProduct) *Matcher {
	m := &Matcher{
		catalog:        catalog,
		productExact:   make(map[string][]indexEntry),
		productAlnum:   make(map[string][]indexEntry),
		secondaryExact: make(map[string][]indexEntry),
		secondaryAlnum: make(map[string][]indexEntry),
		normNames:      make(map[int64]string, len(catalog)),
	}

	for _, good := range catalog {
		if good.ProductCode != "" {
			m.addCode(m.productExact, m.productAlnum, good.ProductCode, good.GoodID, originProductCode)
		}
		for _, cross := range good.CrossCodes {
			m.addCode(m.secondaryExact, m.secondaryAlnum, cross, good.GoodID, originCrossCode)
		}
		for _, barcode := range good.Barcodes {
			m.addCode(m.secondaryExact, m.secondaryAlnum, barcode, good.GoodID, originBarcode)
		}
		m.normNames[good.GoodID] = NormalizeName(good.Name)
	}
	return m
}

func (m *Matcher) addCode(exact, alnum map[string][]indexEntry, code string, goodID int64, origin string) {
	if key := NormalizeCode(code); key != "" {
		exact[key] = append(exact[key], indexEntry{goodID: goodID, origin: origin})
	}
	if key := NormalizeCodeAlnum(code); key != "" {
		alnum[key] = append(alnum[key], indexEntry{goodID: goodID, origin: origin})
	}
}

// Good returns the catalog product by id.
func (m *Matcher) Good(goodID int64) (model.CatalogProduct, bool) {
	good, ok := m.catalog[goodID]
	return good, ok
}

// CatalogSize returns the number of products in the snapshot.
func (m *Matcher) CatalogSize() int { return len(m.catalog) }

// MatchLines re-derives the match state of every line. Lines carrying a
// manual-edit flag keep their binding until the override is cleared.
func (m *Matcher) MatchLines(lines []model.InvoiceLine) {
	for i := range lines {
		if lines[i].Flags.Has(model.FlagManualEdit) {
			continue
		}
		m.MatchLine(&lines[i])
	}
}

// MatchLine classifies one line against the catalog. Stages run in fixed
// order and the first stage producing candidates wins: primary code, then
// secondary codes, then name fuzzy, then not found.
func (m *Matcher) MatchLine(line *model.InvoiceLine) {
	line.Flags.Clear(model.FlagSellInitialized)
	article := strings.TrimSpace(line.Article)
	name := strings.TrimSpace(line.Name)

	if primary := m.findPrimaryByCode(article); len(primary) > 0 {
		line.Candidates = primary
		line.SimilarArticles = formatSimilarArticles(primary)
		if len(primary) == 1 {
			m.applyCandidate(line, primary[0], model.StatusExact)
			line.Action = model.ActionImport
			line.Warning = ""
			return
		}
		merged := mergeCandidates(primary, m.findSecondaryByCode(article), codeCandidateLimit)
		line.Candidates = merged
		line.SimilarArticles = formatSimilarArticles(merged)
		m.markUnresolved(line, model.StatusAmbiguous, "product_code_ambiguous", model.ActionSkip,
			"Несколько товаров по главному артикулу, выберите вручную.")
		return
	}

	if secondary := m.findSecondaryByCode(article); len(secondary) > 0 {
		line.Candidates = secondary
		line.SimilarArticles = formatSimilarArticles(secondary)
		m.markUnresolved(line, model.StatusAmbiguous, "secondary_code_hint", model.ActionSkip,
			"Точный основной артикул не найден. Есть похожие по кросс-кодам/штрихкоду.")
		return
	}

	nameCandidates := m.findByName(name, nameCandidateLimit)
	line.Candidates = nameCandidates
	line.SimilarArticles = formatSimilarArticles(nameCandidates)
	if len(nameCandidates) == 1 && nameCandidates[0].Score >= fuzzyAcceptScore {
		m.applyCandidate(line, nameCandidates[0], model.StatusFuzzy)
		line.Action = model.ActionImport
		line.Warning = "Автосопоставление по названию. Проверьте перед импортом."
		return
	}

	m.markUnresolved(line, model.StatusNotFound, "", model.ActionCreate,
		"Товар не найден автоматически.")
}

// ApplyManualGood force-binds a line to a catalog product. It is the only
// path that can override an ambiguous or not-found line without re-running
// the staged algorithm, and it makes the binding sticky.
func (m *Matcher) ApplyManualGood(line *model.InvoiceLine, goodID int64) error {
	good, ok := m.catalog[goodID]
	if !ok {
		return fmt.Errorf("%w: good_id=%d", common.ErrGoodNotFound, goodID)
	}
	line.Flags.Clear(model.FlagSellInitialized)
	cand := candidateFromGood(good, "manual", 1.0)
	m.applyCandidate(line, cand, model.StatusManual)
	line.Candidates = []model.MatchCandidate{cand}
	line.SimilarArticles = formatSimilarArticles(line.Candidates)
	line.Action = model.ActionImport
	line.Warning = ""
	line.Flags = line.Flags.Set(model.FlagManualEdit)
	return nil
}

// ClearManualOverride releases the sticky manual binding so the next
// MatchLines run re-derives the line.
func ClearManualOverride(line *model.InvoiceLine) {
	line.Flags.Clear(model.FlagManualEdit)
}

func (m *Matcher) findPrimaryByCode(article string) []model.MatchCandidate {
	raw := strings.TrimSpace(article)
	if raw == "" {
		return nil
	}

	bucket := make(map[int64]model.MatchCandidate)
	if key := NormalizeCode(raw); key != "" {
		for _, entry := range m.productExact[key] {
			good, ok := m.catalog[entry.goodID]
			if !ok {
				continue
			}
			cand := candidateFromGood(good, "code_exact_"+entry.origin, 1.0)
			bucket[good.GoodID] = pickBest(bucket[good.GoodID], cand)
		}
	}
	if key := NormalizeCodeAlnum(raw); key != "" {
		for _, entry := range m.productAlnum[key] {
			good, ok := m.catalog[entry.goodID]
			if !ok {
				continue
			}
			cand := candidateFromGood(good, "code_alnum_"+entry.origin, 0.97)
			bucket[good.GoodID] = pickBest(bucket[good.GoodID], cand)
		}
	}
	return rankBucket(bucket, codeCandidateLimit)
}

func (m *Matcher) findSecondaryByCode(article string) []model.MatchCandidate {
	variants := ArticleVariants(article)
	if len(variants) == 0 {
		return nil
	}

	bucket := make(map[int64]model.MatchCandidate)
	for _, variant := range variants {
		if key := NormalizeCode(variant); key != "" {
			for _, entry := range m.secondaryExact[key] {
				good, ok := m.catalog[entry.goodID]
				if !ok {
					continue
				}
				score := 0.94
				if entry.origin == originBarcode {
					score = 0.92
				}
				cand := candidateFromGood(good, "secondary_exact_"+entry.origin, score)
				bucket[good.GoodID] = pickBest(bucket[good.GoodID], cand)
			}
		}
		if key := NormalizeCodeAlnum(variant); key != "" {
			for _, entry := range m.secondaryAlnum[key] {
				good, ok := m.catalog[entry.goodID]
				if !ok {
					continue
				}
				score := 0.90
				if entry.origin == originBarcode {
					score = 0.88
				}
				cand := candidateFromGood(good, "secondary_alnum_"+entry.origin, score)
				bucket[good.GoodID] = pickBest(bucket[good.GoodID], cand)
			}
		}
	}
	return rankBucket(bucket, codeCandidateLimit)
}

func (m *Matcher) findByName(name string, limit int) []model.MatchCandidate {
	target := NormalizeName(name)
	if target == "" {
		return nil
	}
	var tokens []string
	for _, t := range strings.Fields(target) {
		if len([]rune(t)) > 2 {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return nil
	}

	var candidates []model.MatchCandidate
	for _, good := range m.catalog {
		normName := m.normNames[good.GoodID]
		if normName == "" {
			continue
		}

		hits := 0
		for _, token := range tokens {
			if strings.Contains(normName, token) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}

		hitScore := float64(hits) / float64(len(tokens))
		ratio := SequenceRatio(target, normName)
		score := round4(hitScore*0.65 + ratio*0.35)
		method := "name_fuzzy"
		if score >= 0.92 {
			method = "name_high"
		}
		candidates = append(candidates, candidateFromGood(good, method, score))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func (m *Matcher) applyCandidate(line *model.InvoiceLine, cand model.MatchCandidate, status model.MatchStatus) {
	line.MatchedGoodID = model.Int64Ptr(cand.GoodID)
	line.MatchedProductCode = cand.ProductCode
	line.MatchedName = cand.Name
	line.MatchedBuyPrice = model.Float64Ptr(cand.BuyPrice)
	line.ExistingSellPrice = model.Float64Ptr(cand.SellPrice)
	line.SellPrice = model.Float64Ptr(cand.SellPrice)
	if good, ok := m.catalog[cand.GoodID]; ok {
		line.MatchedTaxMode = good.TaxMode
	} else {
		line.MatchedTaxMode = 0
	}
	line.MatchStatus = status
	line.MatchMethod = cand.MatchMethod
}

func (m *Matcher) markUnresolved(line *model.InvoiceLine, status model.MatchStatus, method string, action model.LineAction, warning string) {
	line.MatchStatus = status
	line.MatchMethod = method
	line.Warning = warning
	line.MatchedGoodID = nil
	line.MatchedName = line.Name
	line.MatchedProductCode = line.Article
	line.MatchedBuyPrice = nil
	line.ExistingSellPrice = nil
	line.SellPrice = model.Float64Ptr(line.Price)
	line.SuggestedSellPrice = nil
	line.SellPriceDiffPercent = nil
	line.PriceAlert = false
	line.MatchedTaxMode = 0
	line.Action = action
}

func candidateFromGood(good model.CatalogProduct, method string, score float64) model.MatchCandidate {
	return model.MatchCandidate{
		GoodID:       good.GoodID,
		ProductCode:  good.ProductCode,
		Name:         good.Name,
		Manufacturer: good.Manufacturer,
		BuyPrice:     good.BuyPrice,
		SellPrice:    good.SellPrice,
		Remainder:    good.Remainder,
		MatchMethod:  method,
		Score:        score,
	}
}

func pickBest(current, incoming model.MatchCandidate) model.MatchCandidate {
	if current.GoodID == 0 || incoming.Score > current.Score {
		return incoming
	}
	return current
}

func rankBucket(bucket map[int64]model.MatchCandidate, limit int) []model.MatchCandidate {
	if len(bucket) == 0 {
		return nil
	}
	out := make([]model.MatchCandidate, 0, len(bucket))
	for _, cand := range bucket {
		out = append(out, cand)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].GoodID < out[j].GoodID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func mergeCandidates(primary, secondary []model.MatchCandidate, limit int) []model.MatchCandidate {
	bucket := make(map[int64]model.MatchCandidate, len(primary)+len(secondary))
	for _, cand := range primary {
		bucket[cand.GoodID] = pickBest(bucket[cand.GoodID], cand)
	}
	for _, cand := range secondary {
		bucket[cand.GoodID] = pickBest(bucket[cand.GoodID], cand)
	}
	return rankBucket(bucket, limit)
}

func formatSimilarArticles(candidates []model.MatchCandidate) string {
	if len(candidates) == 0 {
		return ""
	}
	limit := 5
	if len(candidates) < limit {
		limit = len(candidates)
	}
	parts := make([]string, 0, limit)
	for _, cand := range candidates[:limit] {
		code := strings.TrimSpace(cand.ProductCode)
		if code == "" {
			code = "без кода"
		}
		parts = append(parts, fmt.Sprintf("%s [%d]", code, cand.GoodID))
	}
	return strings.Join(parts, ", ")
}

func round4(v float64) float64 {
	return float64(int64(v*10000+0.5)) / 10000
}
