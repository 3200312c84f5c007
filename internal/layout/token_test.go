package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tok(text string, x, y float64) Token {
	return Token{Text: text, X: x, Y: y, Width: float64(len(text)) * 5, Height: 0}
}

func TestGroupRows(t *testing.T) {
	t.Run("clusters within tolerance", func(t *testing.T) {
		tokens := []Token{tok("a", 0, 10), tok("b", 10, 11), tok("c", 20, 12), tok("d", 0, 40)}
		lines := GroupRows(tokens, 5)
		require.Len(t, lines, 2)
		assert.Equal(t, "a b c", lines[0].Text())
		assert.Equal(t, "d", lines[1].Text())
	})

	t.Run("sorts lines top to bottom and tokens left to right", func(t *testing.T) {
		tokens := []Token{tok("z", 50, 100), tok("second", 30, 40), tok("first", 0, 41), tok("y", 0, 100)}
		lines := GroupRows(tokens, 3)
		require.Len(t, lines, 2)
		assert.Equal(t, "first second", lines[0].Text())
		assert.Equal(t, "y z", lines[1].Text())
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, GroupRows(nil, 5))
	})

	t.Run("deterministic", func(t *testing.T) {
		tokens := []Token{tok("a", 0, 10), tok("b", 0, 10), tok("c", 5, 14), tok("d", 5, 30)}
		assert.Equal(t, GroupRows(tokens, 5), GroupRows(tokens, 5))
	})

	t.Run("skips blank tokens", func(t *testing.T) {
		lines := GroupRows([]Token{tok("  ", 0, 10), tok("x", 0, 10)}, 2)
		require.Len(t, lines, 1)
		assert.Len(t, lines[0].Tokens, 1)
	})
}

func TestJoin(t *testing.T) {
	toks := []Token{
		{Text: "1.", X: 0, Width: 8, Height: 10},
		{Text: "200,00", X: 9, Width: 30, Height: 10},
		{Text: "EUR", X: 60, Width: 15, Height: 10},
	}
	assert.Equal(t, "1.200,00 EUR", Join(toks, 3))
}
