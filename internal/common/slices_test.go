package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithout(t *testing.T) {
	assert.Equal(t, []int{1, 3}, Without([]int{1, 2, 3, 2}, 2))
	assert.Equal(t, []int{}, Without([]int{2}, 2))
}

func TestSortedKeys(t *testing.T) {
	m := map[string]int{"b": 1, "a": 2, "c": 3}
	for range 10 {
		assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(m))
	}
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, Unique([]string{"x", "y", "x"}))
}

func TestFirstLast(t *testing.T) {
	v, ok := First([]int{})
	assert.False(t, ok)
	assert.Zero(t, v)

	v, ok = Last([]int{4, 5})
	assert.True(t, ok)
	assert.Equal(t, 5, v)
}

func TestIsInRange(t *testing.T) {
	assert.True(t, IsInRange(1, 1, 3))
	assert.True(t, IsInRange(1, 3, 3))
	assert.False(t, IsInRange(1, 4, 3))
}
