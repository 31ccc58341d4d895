package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	require.NoError(t, Init("2024-01-01", 1))

	seen := make(map[int64]struct{})
	var last int64
	for i := 0; i < 1000; i++ {
		id, err := GenerateID()
		require.NoError(t, err)
		assert.Greater(t, id, last)
		last = id
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 1000)
}

func TestInit_Invalid(t *testing.T) {
	assert.Error(t, Init("2024/01/01", 1))
	assert.Error(t, Init("2024-01-01", 4096))
}
