package tinyfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocInodeNeverDoubleAllocates(t *testing.T) {
	s := newTestSession(t)

	seen := map[uint32]bool{}
	for i := 0; i < 10; i++ {
		ino, err := s.allocInode()
		require.NoError(t, err)
		require.False(t, seen[ino], "inode %d allocated twice", ino)
		seen[ino] = true
	}
}

func TestFreeInodeAllowsReuse(t *testing.T) {
	s := newTestSession(t)

	ino, err := s.allocInode()
	require.NoError(t, err)
	require.NoError(t, s.freeInode(ino))

	again, err := s.allocInode()
	require.NoError(t, err)
	assert.Equal(t, ino, again)
}

func TestAllocInodeExhaustionReturnsNoSpace(t *testing.T) {
	s := newTestSession(t)

	for i := uint32(0); i < s.sb.MaxInum; i++ {
		bitSet(s.iBitmap, i)
	}

	_, err := s.allocInode()
	require.Error(t, err)
	fsErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindNoSpace, fsErr.Kind)
}

func TestAllocBlockWritesThroughBitmap(t *testing.T) {
	s := newTestSession(t)

	bno, err := s.allocBlock()
	require.NoError(t, err)

	buf := make([]byte, BlockSize)
	require.NoError(t, s.dev.ReadBlock(s.sb.DBitmapBlk, buf))
	assert.True(t, bitGet(buf, bno))
}
