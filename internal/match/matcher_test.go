package match

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahiokk/tirika-import/internal/common"
	"github.com/ahiokk/tirika-import/internal/model"
)

func testCatalog() map[int64]model.CatalogProduct {
	return map[int64]model.CatalogProduct{
		1: {
			GoodID:      1,
			ProductCode: "GM-1104",
			Name:        "Фильтр масляный",
			BuyPrice:    100,
			SellPrice:   150,
			TaxMode:     2,
			CrossCodes:  []string{"OLD-GM-1104"},
		},
		2: {
			GoodID:      2,
			ProductCode: "SP-200",
			Name:        "Свеча зажигания иридиевая",
			BuyPrice:    300,
			SellPrice:   450,
			Barcodes:    []string{"4601234567890"},
		},
		3: {
			GoodID:      3,
			ProductCode: "BRK-77",
			Name:        "Колодки тормозные передние",
			BuyPrice:    800,
			SellPrice:   1200,
		},
	}
}

func TestMatchLineExact(t *testing.T) {
	m := New(testCatalog())

	t.Run("single exact code", func(t *testing.T) {
		line := model.InvoiceLine{LineNo: 1, Article: "GM-1104", Name: "Фильтр", Price: 90}
		m.MatchLine(&line)

		assert.Equal(t, model.StatusExact, line.MatchStatus)
		assert.Equal(t, model.ActionImport, line.Action)
		require.NotNil(t, line.MatchedGoodID)
		assert.Equal(t, int64(1), *line.MatchedGoodID)
		assert.Equal(t, "GM-1104", line.MatchedProductCode)
		require.NotNil(t, line.ExistingSellPrice)
		assert.InDelta(t, 150, *line.ExistingSellPrice, 1e-9)
		assert.Equal(t, int64(2), line.MatchedTaxMode)
		assert.Empty(t, line.Warning)
	})

	t.Run("alnum form of code", func(t *testing.T) {
		line := model.InvoiceLine{LineNo: 1, Article: "gm1104", Price: 90}
		m.MatchLine(&line)

		assert.Equal(t, model.StatusExact, line.MatchStatus)
		require.NotNil(t, line.MatchedGoodID)
		assert.Equal(t, int64(1), *line.MatchedGoodID)
	})

	t.Run("idempotent", func(t *testing.T) {
		line := model.InvoiceLine{LineNo: 1, Article: "GM-1104", Price: 90}
		m.MatchLine(&line)
		first := line.Clone()
		m.MatchLine(&line)
		assert.Equal(t, first.MatchStatus, line.MatchStatus)
		assert.Equal(t, *first.MatchedGoodID, *line.MatchedGoodID)
	})
}

func TestMatchLineAmbiguous(t *testing.T) {
	catalog := testCatalog()
	catalog[4] = model.CatalogProduct{GoodID: 4, ProductCode: "gm-1104", Name: "Фильтр масляный аналог", SellPrice: 120}
	m := New(catalog)

	line := model.InvoiceLine{LineNo: 1, Article: "GM-1104", Price: 90}
	m.MatchLine(&line)

	assert.Equal(t, model.StatusAmbiguous, line.MatchStatus)
	assert.Equal(t, model.ActionSkip, line.Action)
	assert.Nil(t, line.MatchedGoodID)
	assert.NotEmpty(t, line.Warning)

	ids := make(map[int64]bool)
	for _, cand := range line.Candidates {
		ids[cand.GoodID] = true
	}
	assert.True(t, ids[1])
	assert.True(t, ids[4])
	require.NotNil(t, line.SellPrice)
	assert.InDelta(t, line.Price, *line.SellPrice, 1e-9)
}

func TestMatchLineSecondaryCodes(t *testing.T) {
	m := New(testCatalog())

	t.Run("cross code hint", func(t *testing.T) {
		line := model.InvoiceLine{LineNo: 1, Article: "OLD-GM-1104", Price: 90}
		m.MatchLine(&line)

		assert.Equal(t, model.StatusAmbiguous, line.MatchStatus)
		assert.Equal(t, "secondary_code_hint", line.MatchMethod)
		assert.Nil(t, line.MatchedGoodID)
		require.NotEmpty(t, line.Candidates)
		assert.Equal(t, int64(1), line.Candidates[0].GoodID)
	})

	t.Run("barcode hint", func(t *testing.T) {
		line := model.InvoiceLine{LineNo: 1, Article: "4601234567890", Price: 300}
		m.MatchLine(&line)

		assert.Equal(t, model.StatusAmbiguous, line.MatchStatus)
		require.NotEmpty(t, line.Candidates)
		assert.Equal(t, int64(2), line.Candidates[0].GoodID)
	})
}

func TestMatchLineFuzzyName(t *testing.T) {
	m := New(testCatalog())

	t.Run("single strong name match", func(t *testing.T) {
		line := model.InvoiceLine{LineNo: 1, Article: "UNKNOWN-1", Name: "Колодки тормозные передние", Price: 700}
		m.MatchLine(&line)

		assert.Equal(t, model.StatusFuzzy, line.MatchStatus)
		assert.Equal(t, model.ActionImport, line.Action)
		require.NotNil(t, line.MatchedGoodID)
		assert.Equal(t, int64(3), *line.MatchedGoodID)
		assert.NotEmpty(t, line.Warning)
	})

	t.Run("nothing matches", func(t *testing.T) {
		line := model.InvoiceLine{LineNo: 1, Article: "ZZZ-999", Name: "Щетка стеклоочистителя", Price: 50}
		m.MatchLine(&line)

		assert.Equal(t, model.StatusNotFound, line.MatchStatus)
		assert.Equal(t, model.ActionCreate, line.Action)
		assert.Nil(t, line.MatchedGoodID)
		require.NotNil(t, line.SellPrice)
		assert.InDelta(t, 50, *line.SellPrice, 1e-9)
	})
}

func TestApplyManualGood(t *testing.T) {
	m := New(testCatalog())

	t.Run("unknown good", func(t *testing.T) {
		line := model.InvoiceLine{LineNo: 1, Article: "ZZZ"}
		err := m.ApplyManualGood(&line, 999)
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrGoodNotFound))
	})

	t.Run("binding is sticky", func(t *testing.T) {
		lines := []model.InvoiceLine{{LineNo: 1, Article: "GM-1104", Price: 90}}
		require.NoError(t, m.ApplyManualGood(&lines[0], 3))

		assert.Equal(t, model.StatusManual, lines[0].MatchStatus)
		assert.True(t, lines[0].Flags.Has(model.FlagManualEdit))

		// Re-matching everything must keep the manual binding even though
		// the article would resolve to good 1.
		m.MatchLines(lines)
		require.NotNil(t, lines[0].MatchedGoodID)
		assert.Equal(t, int64(3), *lines[0].MatchedGoodID)

		ClearManualOverride(&lines[0])
		m.MatchLines(lines)
		require.NotNil(t, lines[0].MatchedGoodID)
		assert.Equal(t, int64(1), *lines[0].MatchedGoodID)
	})
}
