package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/warriorguo/hyperbuild/expr"
)

func TestEvaluate(t *testing.T) {
	page := map[string]any{
		"title": "Pricing",
		"score": 0.75,
		"tags":  []any{"saas", "b2b"},
	}

	cases := []struct {
		name   string
		source string
		input  any
		want   bool
	}{
		{"literal true", "true", nil, true},
		{"literal false", "false", page, false},
		{"number compare", "input.score > 0.5", page, true},
		{"string equality", `input.title == "Pricing"`, page, true},
		{"boolean combinators", `input.score > 0.9 || contains(input.tags, "b2b")`, page, true},
		{"negation", `!(input.score > 0.5)`, page, false},
		{"string input", `length(input) > 3`, "hello", true},
		{"string functions", `upper(trimspace(input)) == "HELLO"`, "  hello ", true},
		{"regex", `can(regex("^h.l", input))`, "hello", true},
		{"keys", `contains(keys(input), "score")`, page, true},
		{"null input", `input == null`, nil, true},
		{"number truthiness", `input`, 0, false},
		{"non-zero number", `input`, 2, true},
		{"empty string", `input`, "", false},
		{"collection", `input`, []any{}, true},
		{"missing attribute", `input.nope > 1`, page, false},
		{"unknown variable", `value > 1`, 2, false},
		{"unknown function", `eval("1")`, nil, false},
		{"syntax error", `input >`, 1, false},
		{"empty expression", ``, 1, false},
		{"type mismatch", `input > 1`, "abc", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, expr.Evaluate(tc.source, tc.input))
		})
	}
}

func TestCompile(t *testing.T) {
	e, err := expr.Compile(`input.count >= 2`)
	require.Nil(t, err)
	assert.Equal(t, `input.count >= 2`, e.String())

	ok, err := e.Eval(map[string]any{"count": 3})
	require.Nil(t, err)
	assert.True(t, ok)

	ok, err = e.Eval(map[string]any{"count": 1})
	require.Nil(t, err)
	assert.False(t, ok)

	_, err = e.Eval(map[string]any{"other": 1})
	assert.NotNil(t, err)

	_, err = expr.Compile(`other.count`)
	assert.NotNil(t, err)
}

func TestEvalRejectsNonJSONInput(t *testing.T) {
	e, err := expr.Compile(`true`)
	require.Nil(t, err)
	_, err = e.Eval(make(chan int))
	assert.NotNil(t, err)
}

func TestTruthy(t *testing.T) {
	assert.False(t, expr.Truthy(cty.NullVal(cty.String)))
	assert.False(t, expr.Truthy(cty.UnknownVal(cty.Bool)))
	assert.True(t, expr.Truthy(cty.True))
	assert.False(t, expr.Truthy(cty.NumberIntVal(0)))
	assert.True(t, expr.Truthy(cty.NumberFloatVal(-0.5)))
	assert.True(t, expr.Truthy(cty.StringVal("x")))
	assert.True(t, expr.Truthy(cty.EmptyObjectVal))
}
