package tinyfs

import (
	"errors"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Session is a mounted filesystem: the open block device, the superblock,
// and the in-memory bitmap caches that are written through to disk on
// every mutation (spec.md sec 9, "Duplicated bitmap caches").
//
// A Session is not safe for concurrent use by multiple goroutines; callers
// that need concurrent access must serialize with their own lock, exactly
// as spec.md sec 5 describes. Mu is exposed for that purpose by fusefs.go.
type Session struct {
	Mu sync.Mutex

	dev     BlockDevice
	sb      onDiskSuperblock
	iBitmap []byte
	dBitmap []byte

	log *logrus.Entry
}

// Format initializes a brand new disk image at path: a fresh superblock,
// zeroed bitmaps, and a root inode (number 0) containing "/", ".", and
// ".." entries pointing at itself.
func Format(path string) (*Session, error) {
	dev, err := CreateDevice(path)
	if err != nil {
		return nil, err
	}

	sb := newSuperblock()
	s := &Session{
		dev:     dev,
		sb:      sb,
		iBitmap: make([]byte, BlockSize),
		dBitmap: make([]byte, BlockSize),
		log:     logrus.WithField("component", "tinyfs"),
	}

	s.log.WithFields(logrus.Fields{
		"path":     path,
		"maxInum":  sb.MaxInum,
		"maxDnum":  sb.MaxDnum,
		"iStart":   sb.IStartBlk,
		"dStart":   sb.DStartBlk,
	}).Info("formatting disk image")

	buf, err := sb.marshal()
	if err != nil {
		return nil, errIO("format", path, err)
	}
	if err := s.dev.WriteBlock(superblockBlock, buf); err != nil {
		return nil, err
	}
	if err := s.writeInodeBitmap(); err != nil {
		return nil, err
	}
	if err := s.writeDataBitmap(); err != nil {
		return nil, err
	}

	rootIno, err := s.allocInode()
	if err != nil {
		return nil, err
	}
	if rootIno != 0 {
		s.log.WithField("ino", rootIno).Warn("root inode did not land on inode 0")
	}

	root := &inode{
		Ino:   rootIno,
		Valid: true,
		Type:  typeDir,
		Link:  0,
	}
	for i := range root.Direct {
		root.Direct[i] = unmapped
	}
	for i := range root.Indirect {
		root.Indirect[i] = unmapped
	}
	root.Attr.Mode = modeDir | 0755
	if err := s.writeInode(root); err != nil {
		return nil, err
	}

	for _, name := range []string{"/", ".", ".."} {
		if err := s.dirAdd(rootIno, rootIno, name, "format"); err != nil {
			return nil, err
		}
	}

	s.log.Info("format complete")
	return s, nil
}

// Mount opens an existing disk image and verifies its magic number.
func Mount(path string) (*Session, error) {
	dev, err := OpenDevice(path)
	if err != nil {
		return nil, err
	}

	s := &Session{
		dev: dev,
		log: logrus.WithField("component", "tinyfs"),
	}

	buf := make([]byte, BlockSize)
	if err := s.dev.ReadBlock(superblockBlock, buf); err != nil {
		return nil, err
	}
	if err := s.sb.unmarshal(buf); err != nil {
		dev.Close()
		return nil, errBadFS("mount", path, err)
	}

	iBitmap := make([]byte, BlockSize)
	if err := s.dev.ReadBlock(s.sb.IBitmapBlk, iBitmap); err != nil {
		return nil, err
	}
	dBitmap := make([]byte, BlockSize)
	if err := s.dev.ReadBlock(s.sb.DBitmapBlk, dBitmap); err != nil {
		return nil, err
	}
	s.iBitmap = iBitmap
	s.dBitmap = dBitmap

	s.log.WithField("path", path).Info("mounted")
	return s, nil
}

// Open mounts the disk image at path, formatting it first if it does not
// yet exist -- the "format-on-first-use" behavior spec.md sec 4.I assigns
// to the host glue layer.
func Open(path string) (*Session, error) {
	s, err := Mount(path)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return Format(path)
}

// Close releases the underlying block device. It does not flush the
// bitmap caches: every mutation already writes through immediately.
func (s *Session) Close() error {
	s.log.Info("unmounting")
	return s.dev.Close()
}

func (s *Session) writeInodeBitmap() error {
	return s.dev.WriteBlock(s.sb.IBitmapBlk, s.iBitmap)
}

func (s *Session) writeDataBitmap() error {
	return s.dev.WriteBlock(s.sb.DBitmapBlk, s.dBitmap)
}

func (s *Session) iStart() uint32 { return s.sb.IStartBlk }
func (s *Session) dStart() uint32 { return s.sb.DStartBlk }
