package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueSlice(t *testing.T) {
	assert.Equal(t, []int{1}, UniqueSlice([]int{1}))
	assert.Equal(t, []int{1}, UniqueSlice([]int{1, 1}))
	assert.Equal(t, []int{1}, UniqueSlice([]int{1, 1, 1}))
	assert.Equal(t, []int{1, 2}, UniqueSlice([]int{1, 1, 2}))
	assert.Equal(t, []int{1, 2}, UniqueSlice([]int{1, 2, 2}))
	assert.Equal(t, []int{1, 2, 3}, UniqueSlice([]int{1, 2, 2, 3, 3}))
	assert.Equal(t, []int{1, 2, 3, 4}, UniqueSlice([]int{1, 2, 2, 3, 3, 3, 3, 3, 4}))
}

func TestSerializePretty(t *testing.T) {
	b, err := SerializePretty("seed")
	assert.Nil(t, err)
	assert.Equal(t, "seed", string(b))

	b, err = SerializePretty(map[string]int{"a": 1})
	assert.Nil(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(b))

	b, err = SerializePretty(nil)
	assert.Nil(t, err)
	assert.Equal(t, "null", string(b))
}

func TestCloneMap(t *testing.T) {
	m := map[string]int{"a": 1}
	clone := CloneMap(m)
	clone["b"] = 2
	assert.Equal(t, map[string]int{"a": 1}, m)
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, clone)
	assert.Empty(t, CloneMap[string, int](nil))
}
