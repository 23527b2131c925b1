package tinyfs

import (
	"io"
	"io/fs"
	"time"
)

// iofs.go exposes a read-only io/fs.FS view of a mounted Session, the same
// convenience squashfs's file.go/dir.go gave callers for archive
// inspection without the FUSE host glue. Used by cmd/tinyfsmount's "ls"
// and "cat" subcommands.

// FS adapts a Session to io/fs.FS.
type FS struct {
	s *Session
}

var _ fs.FS = FS{}
var _ fs.StatFS = FS{}
var _ fs.ReadDirFS = FS{}

// IOFS wraps sess as a read-only io/fs.FS.
func IOFS(sess *Session) FS {
	return FS{s: sess}
}

type fileInfo struct {
	name string
	in   *inode
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return int64(fi.in.Size) }
func (fi fileInfo) Mode() fs.FileMode  { return unixToFileMode(fi.in.Attr.Mode) }
func (fi fileInfo) ModTime() time.Time { return time.Unix(fi.in.Attr.Mtime, 0) }
func (fi fileInfo) IsDir() bool        { return fi.in.Type == typeDir }
func (fi fileInfo) Sys() interface{}   { return fi.in }

type dirEntryInfo struct{ fileInfo }

func (d dirEntryInfo) Type() fs.FileMode          { return d.Mode().Type() }
func (d dirEntryInfo) Info() (fs.FileInfo, error) { return d.fileInfo, nil }

func (f FS) resolve(name string) (*inode, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	path := name
	if path == "." {
		path = "/"
	} else {
		path = "/" + path
	}
	ino, err := f.s.lookupPath(path)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrnoOf(err)}
	}
	return f.s.readInode(ino)
}

// Stat implements fs.StatFS.
func (f FS) Stat(name string) (fs.FileInfo, error) {
	in, err := f.resolve(name)
	if err != nil {
		return nil, err
	}
	return fileInfo{name: baseName(name), in: in}, nil
}

// ReadDir implements fs.ReadDirFS.
func (f FS) ReadDir(name string) ([]fs.DirEntry, error) {
	in, err := f.resolve(name)
	if err != nil {
		return nil, err
	}
	if in.Type != typeDir {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}

	ents, err := f.s.dirList(in.Ino)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: ErrnoOf(err)}
	}

	out := make([]fs.DirEntry, 0, len(ents))
	for _, e := range ents {
		if e.Name == "." || e.Name == ".." || e.Name == "/" {
			continue
		}
		child, err := f.s.readInode(e.Ino)
		if err != nil {
			return nil, err
		}
		out = append(out, dirEntryInfo{fileInfo{name: e.Name, in: child}})
	}
	return out, nil
}

type openFile struct {
	f      FS
	in     *inode
	name   string
	path   string
	offset int64
	dirPos int
}

// Open implements fs.FS. The returned file supports Read and, for
// directories, ReadDir.
func (f FS) Open(name string) (fs.File, error) {
	in, err := f.resolve(name)
	if err != nil {
		return nil, err
	}
	return &openFile{f: f, in: in, name: baseName(name), path: name}, nil
}

func (of *openFile) Stat() (fs.FileInfo, error) {
	return fileInfo{name: of.name, in: of.in}, nil
}

func (of *openFile) Read(p []byte) (int, error) {
	if of.in.Type == typeDir {
		return 0, &fs.PathError{Op: "read", Path: of.name, Err: fs.ErrInvalid}
	}
	n, err := of.f.s.Read(of.in.Ino, of.offset, p)
	of.offset += int64(n)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (of *openFile) ReadDir(n int) ([]fs.DirEntry, error) {
	all, err := of.f.ReadDir(of.path)
	if err != nil {
		return nil, err
	}
	if of.dirPos > len(all) {
		of.dirPos = len(all)
	}
	rest := all[of.dirPos:]
	if n <= 0 {
		of.dirPos = len(all)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	if n > len(rest) {
		n = len(rest)
	}
	of.dirPos += n
	return rest[:n], nil
}

func (of *openFile) Close() error { return nil }

func baseName(name string) string {
	if name == "." || name == "" {
		return "/"
	}
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			return name[i+1:]
		}
	}
	return name
}
