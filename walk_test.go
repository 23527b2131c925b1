package tinyfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBlankInode(t *testing.T, s *Session, typ fileType) *inode {
	t.Helper()
	ino, err := s.allocInode()
	require.NoError(t, err)
	in := &inode{Ino: ino, Valid: true, Type: typ}
	for i := range in.Direct {
		in.Direct[i] = unmapped
	}
	for i := range in.Indirect {
		in.Indirect[i] = unmapped
	}
	return in
}

func TestEnsureBlockDirect(t *testing.T) {
	s := newTestSession(t)
	in := newBlankInode(t, s, typeFile)

	bno, err := s.ensureBlock(in, 0)
	require.NoError(t, err)
	assert.NotEqual(t, in.Direct[0], int32(unmapped))

	bno2, err := s.ensureBlock(in, 0)
	require.NoError(t, err)
	assert.Equal(t, bno, bno2)
}

func TestEnsureBlockIndirectAllocatesPointerBlock(t *testing.T) {
	s := newTestSession(t)
	in := newBlankInode(t, s, typeFile)

	logical := NumDirect + 5
	bno, err := s.ensureBlock(in, logical)
	require.NoError(t, err)
	assert.NotEqual(t, int32(unmapped), in.Indirect[0])

	phys, mapped, err := s.mapLogical(in, logical)
	require.NoError(t, err)
	require.True(t, mapped)
	assert.Equal(t, bno, phys)
}

func TestMapLogicalUnmappedIsNotAnError(t *testing.T) {
	s := newTestSession(t)
	in := newBlankInode(t, s, typeFile)

	_, mapped, err := s.mapLogical(in, 3)
	require.NoError(t, err)
	assert.False(t, mapped)
}

func TestEnsureBlockRejectsOutOfRange(t *testing.T) {
	s := newTestSession(t)
	in := newBlankInode(t, s, typeFile)

	_, err := s.ensureBlock(in, MaxLogicalBlocks)
	require.Error(t, err)
	fsErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindTooLarge, fsErr.Kind)
}

func TestFreeAllBlocksClearsDirectAndIndirect(t *testing.T) {
	s := newTestSession(t)
	in := newBlankInode(t, s, typeFile)

	_, err := s.ensureBlock(in, 0)
	require.NoError(t, err)
	_, err = s.ensureBlock(in, NumDirect+1)
	require.NoError(t, err)
	in.Size = uint32(NumDirect+2) * BlockSize

	require.NoError(t, s.freeAllBlocks(in))
	assert.Equal(t, int32(unmapped), in.Direct[0])
	assert.Equal(t, int32(unmapped), in.Indirect[0])
}
