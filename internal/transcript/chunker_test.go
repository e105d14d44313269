package transcript

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkRespectsMax(t *testing.T) {
	text := strings.Repeat("Le Dr Tabibian propose de revoir le planning des consultations du jeudi. ", 40)

	chunks := Chunk(text, DefaultChunkMin, DefaultChunkMax)

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), DefaultChunkMax, "chunk %d", i)
		assert.NotEmpty(t, strings.TrimSpace(c), "chunk %d", i)
	}
}

func TestChunkKeepsAllWords(t *testing.T) {
	text := "Première phrase.  Deuxième phrase !\n\nTroisième phrase ? Fin"
	chunks := Chunk(text, 0, 30)

	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(chunks, " ")))
}

func TestChunkSplitsLongSentence(t *testing.T) {
	text := strings.Repeat("mot ", 100) + strings.Repeat("x", 70)

	chunks := Chunk(text, 0, 50)

	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 50)
		assert.NotEmpty(t, c)
	}
	assert.Equal(t, strings.Repeat("x", 20), chunks[len(chunks)-1])
}

func TestChunkRebalancesShortTail(t *testing.T) {
	a := strings.Repeat("a", 50) + "."
	b := strings.Repeat("b", 40) + "."
	c := strings.Repeat("c", 20) + "."

	chunks := Chunk(a+" "+b+" "+c, 40, 100)

	assert.Equal(t, []string{a, b + " " + c}, chunks)
}

func TestChunkEmpty(t *testing.T) {
	assert.Empty(t, Chunk("   \n\t ", DefaultChunkMin, DefaultChunkMax))
}
