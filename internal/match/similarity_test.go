package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceRatio(t *testing.T) {
	t.Run("identical", func(t *testing.T) {
		assert.InDelta(t, 1.0, SequenceRatio("abc", "abc"), 1e-9)
	})

	t.Run("both empty", func(t *testing.T) {
		assert.InDelta(t, 1.0, SequenceRatio("", ""), 1e-9)
	})

	t.Run("one empty", func(t *testing.T) {
		assert.InDelta(t, 0.0, SequenceRatio("abc", ""), 1e-9)
	})

	t.Run("partial overlap", func(t *testing.T) {
		// Longest common block "bcd": 2*3/8.
		assert.InDelta(t, 0.75, SequenceRatio("abcd", "bcde"), 1e-9)
	})

	t.Run("insertion", func(t *testing.T) {
		assert.InDelta(t, 2.0*4/9, SequenceRatio("abcd", "abcde"), 1e-9)
	})

	t.Run("cyrillic", func(t *testing.T) {
		assert.InDelta(t, 1.0, SequenceRatio("фильтр", "фильтр"), 1e-9)
		assert.Greater(t, SequenceRatio("фильтр масляный", "фильтр воздушный"), 0.5)
	})

	t.Run("disjoint", func(t *testing.T) {
		assert.InDelta(t, 0.0, SequenceRatio("abc", "xyz"), 1e-9)
	})
}
