package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[0.5,-0.25,1]", vectorLiteral([]float32{0.5, -0.25, 1}))
	assert.Equal(t, "[]", vectorLiteral(nil))
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{"pending", "confirmed", "completed"} {
		assert.True(t, ValidStatus(s), s)
	}
	assert.False(t, ValidStatus("done"))
	assert.False(t, ValidStatus(""))
}

func TestNullIfEmpty(t *testing.T) {
	assert.False(t, nullIfEmpty("  ").Valid)
	assert.Equal(t, "abc", nullIfEmpty("abc").String)
}
