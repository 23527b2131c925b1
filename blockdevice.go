package tinyfs

import (
	"fmt"
	"os"
)

// BlockDevice is the byte-addressable, fixed-size-block abstraction the
// rest of this filesystem is built on. Blocks are indexed from 0.
type BlockDevice interface {
	ReadBlock(no uint32, buf []byte) error
	WriteBlock(no uint32, buf []byte) error
	Close() error
}

// FileDevice is a BlockDevice backed by a single fixed-size file, in the
// style of go-diskfs's backend.Storage: create-or-truncate on CreateDevice,
// fail-if-missing on OpenDevice.
type FileDevice struct {
	f *os.File
}

var _ BlockDevice = (*FileDevice)(nil)

// CreateDevice creates (truncating if necessary) a DiskSize-byte backing
// file at path and returns a device open for read/write.
func CreateDevice(path string) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errIO("device.create", path, err)
	}
	if err := f.Truncate(DiskSize); err != nil {
		f.Close()
		return nil, errIO("device.create", path, err)
	}
	return &FileDevice{f: f}, nil
}

// OpenDevice opens an existing backing file. It fails if the file does not
// exist, per spec.md sec 4.A.
func OpenDevice(path string) (*FileDevice, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errIO("device.open", path, err)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, errIO("device.open", path, err)
	}
	return &FileDevice{f: f}, nil
}

func (d *FileDevice) ReadBlock(no uint32, buf []byte) error {
	if len(buf) != BlockSize {
		return errIO("device.read", "", fmt.Errorf("buffer must be %d bytes, got %d", BlockSize, len(buf)))
	}
	n, err := d.f.ReadAt(buf, int64(no)*BlockSize)
	if err != nil {
		return errIO("device.read", "", err)
	}
	if n != BlockSize {
		return errIO("device.read", "", fmt.Errorf("short read: got %d of %d bytes", n, BlockSize))
	}
	return nil
}

func (d *FileDevice) WriteBlock(no uint32, buf []byte) error {
	if len(buf) != BlockSize {
		return errIO("device.write", "", fmt.Errorf("buffer must be %d bytes, got %d", BlockSize, len(buf)))
	}
	n, err := d.f.WriteAt(buf, int64(no)*BlockSize)
	if err != nil {
		return errIO("device.write", "", err)
	}
	if n != BlockSize {
		return errIO("device.write", "", fmt.Errorf("short write: wrote %d of %d bytes", n, BlockSize))
	}
	return nil
}

func (d *FileDevice) Close() error {
	if err := d.f.Close(); err != nil {
		return errIO("device.close", "", err)
	}
	return nil
}
