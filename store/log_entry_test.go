package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("diet")
	require.NoError(t, err)
	assert.Equal(t, CategoryDiet, c)

	c, err = ParseCategory("exercise")
	require.NoError(t, err)
	assert.Equal(t, CategoryExercise, c)

	_, err = ParseCategory("sleep")
	assert.Error(t, err)
	_, err = ParseCategory("")
	assert.Error(t, err)
}
