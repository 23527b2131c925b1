package tinyfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupPathNested(t *testing.T) {
	s := newTestSession(t)

	a, err := s.Mkdir(rootIno, "a", 0755)
	require.NoError(t, err)
	b, err := s.Mkdir(a.Ino, "b", 0755)
	require.NoError(t, err)
	f, err := s.Create(b.Ino, "c.txt", 0644)
	require.NoError(t, err)

	ino, err := s.lookupPath("/a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, f.Ino, ino)

	ino, err = s.lookupPath("/")
	require.NoError(t, err)
	assert.Equal(t, rootIno, ino)
}

func TestLookupParentSplitsFinalComponent(t *testing.T) {
	s := newTestSession(t)
	a, err := s.Mkdir(rootIno, "a", 0755)
	require.NoError(t, err)

	parent, name, err := s.lookupParent("/a/newfile.txt")
	require.NoError(t, err)
	assert.Equal(t, a.Ino, parent)
	assert.Equal(t, "newfile.txt", name)
}

func TestSplitPathIgnoresEmptyAndDotComponents(t *testing.T) {
	assert.Empty(t, splitPath("/"))
	assert.Empty(t, splitPath(""))
	assert.Equal(t, []string{"a", "b"}, splitPath("/a/./b/"))
}
