package tinyfs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disk.img")
	s, err := Format(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFormatCreatesRootDirectory(t *testing.T) {
	s := newTestSession(t)

	root, err := s.readInode(rootIno)
	require.NoError(t, err)
	require.Equal(t, typeDir, root.Type)

	ents, err := s.dirList(rootIno)
	require.NoError(t, err)

	names := map[string]uint32{}
	for _, e := range ents {
		names[e.Name] = e.Ino
	}
	require.Contains(t, names, "/")
	require.Contains(t, names, ".")
	require.Contains(t, names, "..")
	require.EqualValues(t, rootIno, names["."])
	require.EqualValues(t, rootIno, names[".."])
}

func TestOpenFormatsMissingImageThenMountsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")

	s1, err := Open(path)
	require.NoError(t, err)
	_, err = s1.Mkdir(rootIno, "a", 0755)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	_, err = s2.Lookup(rootIno, "a")
	require.NoError(t, err)
}

func TestMountRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.img")
	dev, err := CreateDevice(path)
	require.NoError(t, err)
	require.NoError(t, dev.Close())

	_, err = Mount(path)
	require.Error(t, err)
	fsErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, KindBadFS, fsErr.Kind)
}
