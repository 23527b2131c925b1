package tinyfs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDeviceFailsWhenMissing(t *testing.T) {
	_, err := OpenDevice(filepath.Join(t.TempDir(), "nope.img"))
	require.Error(t, err)
	fsErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindIO, fsErr.Kind)
}

func TestCreateDeviceSizesFileToDiskSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	dev, err := CreateDevice(path)
	require.NoError(t, err)
	defer dev.Close()

	buf := make([]byte, BlockSize)
	require.NoError(t, dev.ReadBlock(TotalBlocks-1, buf))
}

func TestReadWriteBlockRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	dev, err := CreateDevice(path)
	require.NoError(t, err)
	defer dev.Close()

	buf := make([]byte, BlockSize)
	for i := range buf {
		buf[i] = byte(i)
	}
	require.NoError(t, dev.WriteBlock(5, buf))

	got := make([]byte, BlockSize)
	require.NoError(t, dev.ReadBlock(5, got))
	assert.Equal(t, buf, got)
}

func TestWriteBlockRejectsWrongSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	dev, err := CreateDevice(path)
	require.NoError(t, err)
	defer dev.Close()

	err = dev.WriteBlock(0, make([]byte, 10))
	require.Error(t, err)
}
