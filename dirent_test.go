package tinyfs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirAddFindRemove(t *testing.T) {
	s := newTestSession(t)

	ino, err := s.allocInode()
	require.NoError(t, err)
	child := &inode{Ino: ino, Valid: true, Type: typeFile}
	for i := range child.Direct {
		child.Direct[i] = unmapped
	}
	for i := range child.Indirect {
		child.Indirect[i] = unmapped
	}
	require.NoError(t, s.writeInode(child))

	require.NoError(t, s.dirAdd(rootIno, ino, "child", "test"))

	e, err := s.dirFind(rootIno, "child")
	require.NoError(t, err)
	assert.Equal(t, ino, e.Ino)

	require.NoError(t, s.dirRemove(rootIno, "child"))
	_, err = s.dirFind(rootIno, "child")
	require.Error(t, err)
}

func TestDirAddReusesInvalidatedSlot(t *testing.T) {
	s := newTestSession(t)

	for i := 0; i < direntsPerBlock-3; i++ {
		ino, err := s.allocInode()
		require.NoError(t, err)
		require.NoError(t, s.dirAdd(rootIno, ino, fmt.Sprintf("f%d", i), "test"))
	}

	root, err := s.readInode(rootIno)
	require.NoError(t, err)
	blocksBefore := numLogicalBlocks(root.Size)

	require.NoError(t, s.dirRemove(rootIno, "f0"))
	ino, err := s.allocInode()
	require.NoError(t, err)
	require.NoError(t, s.dirAdd(rootIno, ino, "reused", "test"))

	root, err = s.readInode(rootIno)
	require.NoError(t, err)
	assert.Equal(t, blocksBefore, numLogicalBlocks(root.Size))

	e, err := s.dirFind(rootIno, "reused")
	require.NoError(t, err)
	assert.Equal(t, ino, e.Ino)
}

func TestDirIsEmptyIgnoresDotEntries(t *testing.T) {
	s := newTestSession(t)
	d, err := s.Mkdir(rootIno, "dir", 0755)
	require.NoError(t, err)

	empty, err := s.dirIsEmpty(d.Ino)
	require.NoError(t, err)
	assert.True(t, empty)

	_, err = s.Create(d.Ino, "f", 0644)
	require.NoError(t, err)

	empty, err = s.dirIsEmpty(d.Ino)
	require.NoError(t, err)
	assert.False(t, empty)
}
