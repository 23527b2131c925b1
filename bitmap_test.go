package tinyfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitmapSetClearGet(t *testing.T) {
	buf := make([]byte, 16)

	assert.False(t, bitGet(buf, 5))
	bitSet(buf, 5)
	assert.True(t, bitGet(buf, 5))
	bitClear(buf, 5)
	assert.False(t, bitGet(buf, 5))
}

func TestBitmapFirstClear(t *testing.T) {
	buf := make([]byte, 2)

	idx, ok := firstClear(buf, 16)
	require.True(t, ok)
	assert.EqualValues(t, 0, idx)

	for i := uint32(0); i < 10; i++ {
		bitSet(buf, i)
	}
	idx, ok = firstClear(buf, 16)
	require.True(t, ok)
	assert.EqualValues(t, 10, idx)

	for i := uint32(10); i < 16; i++ {
		bitSet(buf, i)
	}
	_, ok = firstClear(buf, 16)
	assert.False(t, ok)
}

func TestBitmapFirstClearRespectsLimit(t *testing.T) {
	buf := make([]byte, 16)
	_, ok := firstClear(buf, 0)
	assert.False(t, ok)
}
