package tinyfs

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIOFSStatAndReadDir(t *testing.T) {
	s := newTestSession(t)
	d, err := s.Mkdir(rootIno, "docs", 0755)
	require.NoError(t, err)
	f, err := s.Create(d.Ino, "readme.txt", 0644)
	require.NoError(t, err)
	_, err = s.Write(f.Ino, 0, []byte("hi"))
	require.NoError(t, err)

	fsys := IOFS(s)

	info, err := fs.Stat(fsys, "docs")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	ents, err := fs.ReadDir(fsys, "docs")
	require.NoError(t, err)
	require.Len(t, ents, 1)
	assert.Equal(t, "readme.txt", ents[0].Name())

	data, err := fs.ReadFile(fsys, "docs/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestChmodPreservesFileType(t *testing.T) {
	s := newTestSession(t)
	f, err := s.Create(rootIno, "f.txt", 0644)
	require.NoError(t, err)

	require.NoError(t, s.Chmod(f.Ino, fs.FileMode(0600)))

	in, err := s.readInode(f.Ino)
	require.NoError(t, err)
	assert.Equal(t, uint32(modeReg|0600), in.Attr.Mode)
}
