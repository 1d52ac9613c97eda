package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeStrings(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{"a", "b", "c"}, DedupeStrings([]string{"a", "b", "a", "c", "b"}))
	assert.Empty(DedupeStrings(nil))
}

func TestHashOfString(t *testing.T) {
	assert := assert.New(t)

	// hashing function should be consistent over time
	assert.Equal("4e6f69c0e3d10992", HashOfString("dummy-value"))
	assert.NotEqual(HashOfString("a"), HashOfString("b"))
}

func TestNormalizeText(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("hello world", NormalizeText("  Hello\t WORLD \n"))
	assert.Equal(NormalizeText("Buy NOW"), NormalizeText("buy   now"))
}
