package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	m := New(testCatalog())

	t.Run("empty query browses by id", func(t *testing.T) {
		results := m.Search("", 2)
		require.Len(t, results, 2)
		assert.Equal(t, int64(1), results[0].GoodID)
		assert.Equal(t, int64(2), results[1].GoodID)
	})

	t.Run("code substring ranks first", func(t *testing.T) {
		results := m.Search("gm-11", 10)
		require.NotEmpty(t, results)
		assert.Equal(t, int64(1), results[0].GoodID)
		assert.Equal(t, "search_code", results[0].MatchMethod)
		assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	})

	t.Run("name substring", func(t *testing.T) {
		results := m.Search("свеча зажигания", 10)
		require.NotEmpty(t, results)
		assert.Equal(t, int64(2), results[0].GoodID)
		assert.Equal(t, "search_name", results[0].MatchMethod)
	})

	t.Run("limit respected", func(t *testing.T) {
		results := m.Search("", 1)
		assert.Len(t, results, 1)
	})

	t.Run("no match", func(t *testing.T) {
		results := m.Search("совершенно другое", 10)
		for _, cand := range results {
			assert.GreaterOrEqual(t, cand.Score, 0.35)
		}
	})
}
