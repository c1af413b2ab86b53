package types_test

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warriorguo/hyperbuild/types"
)

type testSchema struct {
	Name  string
	Pages int
	Deep  bool
}

func TestData(t *testing.T) {
	data := &types.Data{}

	data.Set("schema1", testSchema{"pricing", 4, false})
	data.Set("schema2", map[string]any{"Name": "docs", "Pages": 5, "Deep": true})

	pricing := &testSchema{}
	docs := &testSchema{}
	assert.Nil(t, data.GetStruct("schema1", pricing))
	assert.Nil(t, data.GetStruct("schema2", docs))
	assert.NotNil(t, data.GetStruct("schema3", docs))

	assert.Equal(t, "pricing", pricing.Name)
	assert.Equal(t, 4, pricing.Pages)
	assert.Equal(t, false, pricing.Deep)

	assert.Equal(t, "docs", docs.Name)
	assert.Equal(t, 5, docs.Pages)
	assert.Equal(t, true, docs.Deep)

	data.Set("s1", 1)
	data.Set("s2", "2")
	data.Set("s3", math.Pi)
	data.Set("s4", true)

	_, exists := data.Get("s0")
	assert.False(t, exists)

	s, exists := data.GetString("s1")
	assert.True(t, exists)
	assert.Equal(t, "1", s)
	s, exists = data.GetString("s3")
	assert.True(t, exists)
	assert.Equal(t, strconv.FormatFloat(math.Pi, 'f', -1, 64), s)
	s, exists = data.GetString("s4")
	assert.True(t, exists)
	assert.Equal(t, "true", s)

	n, exists := data.GetInt("s2")
	assert.True(t, exists)
	assert.Equal(t, 2, n)
}

func TestDataNonEmptyString(t *testing.T) {
	data := types.Data{"url": "  ", "other": " https://example.com "}

	_, ok := data.GetNonEmptyString("url")
	assert.False(t, ok)
	_, ok = data.GetNonEmptyString("missing")
	assert.False(t, ok)

	s, ok := data.GetNonEmptyString("other")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com", s)
}

func TestDataStringSlice(t *testing.T) {
	data := types.Data{
		"seeds":  []any{"https://a.example", "https://b.example"},
		"single": "https://c.example",
		"null":   nil,
	}

	seeds, ok := data.GetStringSlice("seeds")
	assert.True(t, ok)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, seeds)

	seeds, ok = data.GetStringSlice("single")
	assert.True(t, ok)
	assert.Equal(t, []string{"https://c.example"}, seeds)

	_, ok = data.GetStringSlice("null")
	assert.False(t, ok)
}

func TestNilData(t *testing.T) {
	var data types.Data
	_, exists := data.Get("anything")
	assert.False(t, exists)

	data.Set("k", "v")
	v, exists := data.GetString("k")
	assert.True(t, exists)
	assert.Equal(t, "v", v)
}
