package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeText(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		text string
		out  []string
	}{
		{text: "", out: []string{}},
		{text: "Hello, โลก!", out: []string{"hello", "โลก"}},
		{text: "Gdańsk", out: []string{"gdansk"}},
		{text: "BUY now!!! buy NOW", out: []string{"buy", "now", "buy", "now"}},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, TokenizeText(fix.text))
	}
}

func TestTokenizeTextSkippingCensorChars(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		text string
		out  []string
	}{
		{text: "", out: []string{}},
		{text: "this is b*d", out: []string{"this", "is", "b*d"}},
		{text: "w_o_r_d", out: []string{"w_o_r_d"}},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, TokenizeTextSkippingCensorChars(fix.text))
	}
}

func TestTokenizeIdentifier(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		ident string
		out   []string
	}{
		{ident: "", out: []string{}},
		{ident: "spam-bot.example.com", out: []string{"spam", "bot", "example", "com"}},
		{ident: "@a-b-c", out: []string{}},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, TokenizeIdentifier(fix.ident))
	}
}

func TestSlugify(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("freespeech", Slugify("Free Speech!"))
	assert.Equal("spambot99", Slugify("Spam_Bot-99"))
}

func TestTokenInSet(t *testing.T) {
	assert := assert.New(t)
	set := []string{"alpha", "beta"}
	assert.True(TokenInSet("alpha", set))
	assert.False(TokenInSet("gamma", set))
}
