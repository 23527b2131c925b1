package tinyfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadInodeRoundTrip(t *testing.T) {
	s := newTestSession(t)
	ino, err := s.allocInode()
	require.NoError(t, err)

	in := &inode{Ino: ino, Valid: true, Type: typeFile, Size: 42, Link: 1}
	for i := range in.Direct {
		in.Direct[i] = unmapped
	}
	for i := range in.Indirect {
		in.Indirect[i] = unmapped
	}
	in.Direct[0] = 7
	in.Attr.Mode = modeReg | 0644

	require.NoError(t, s.writeInode(in))

	got, err := s.readInode(ino)
	require.NoError(t, err)
	assert.Equal(t, in.Size, got.Size)
	assert.Equal(t, in.Type, got.Type)
	assert.EqualValues(t, 7, got.Direct[0])
	assert.Equal(t, in.Attr.Mode, got.Attr.Mode)
}

func TestWriteInodePreservesSiblingsInSameBlock(t *testing.T) {
	s := newTestSession(t)

	inoA, err := s.allocInode()
	require.NoError(t, err)
	a := &inode{Ino: inoA, Valid: true, Type: typeFile, Size: 1}
	for i := range a.Direct {
		a.Direct[i] = unmapped
	}
	for i := range a.Indirect {
		a.Indirect[i] = unmapped
	}
	require.NoError(t, s.writeInode(a))

	inoB, err := s.allocInode()
	require.NoError(t, err)
	b := &inode{Ino: inoB, Valid: true, Type: typeFile, Size: 2}
	for i := range b.Direct {
		b.Direct[i] = unmapped
	}
	for i := range b.Indirect {
		b.Indirect[i] = unmapped
	}
	require.NoError(t, s.writeInode(b))

	gotA, err := s.readInode(inoA)
	require.NoError(t, err)
	assert.EqualValues(t, 1, gotA.Size)
}

func TestClearInodeMakesItUnreadable(t *testing.T) {
	s := newTestSession(t)
	ino, err := s.allocInode()
	require.NoError(t, err)
	in := &inode{Ino: ino, Valid: true, Type: typeFile}
	for i := range in.Direct {
		in.Direct[i] = unmapped
	}
	for i := range in.Indirect {
		in.Indirect[i] = unmapped
	}
	require.NoError(t, s.writeInode(in))
	require.NoError(t, s.clearInode(ino))

	_, err = s.readInode(ino)
	require.Error(t, err)
	fsErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, fsErr.Kind)
}
