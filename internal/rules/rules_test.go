package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_FirstMatchWins(t *testing.T) {
	table := Concat(
		Group("cartão", "cartão", "cartao"),
		Group("dinheiro", "dinheiro"),
		Group("pix", "pix"),
	)

	tag, ok := table.Match("vou pagar no PIX ou no cartão")
	assert.True(t, ok)
	assert.Equal(t, "cartão", tag)

	tag, ok = table.Match("pix")
	assert.True(t, ok)
	assert.Equal(t, "pix", tag)

	_, ok = table.Match("boleto")
	assert.False(t, ok)
}

func TestTable_AccentInsensitive(t *testing.T) {
	table := Group("açaí", "açaí")

	r, ok := table.MatchRule("quero um ACAI grande")
	assert.True(t, ok)
	assert.Equal(t, Rule{Pattern: "açaí", Tag: "açaí"}, r)
}

func TestTable_Patterns(t *testing.T) {
	table := Concat(Group("a", "x", "y"), Group("b", "z"))
	assert.Equal(t, []string{"x", "y"}, table.Patterns("a"))
	assert.Nil(t, table.Patterns("c"))
}
