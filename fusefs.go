package tinyfs

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// fusefs.go is the host glue binding a Session to the go-fuse/v2 "fs"
// higher-level API (spec.md sec 4.I). Every node is stateless beyond its
// own inode number; all filesystem state lives in the Session. Every call
// that mutates the image takes Session.Mu, matching the single coarse
// lock spec.md sec 5 calls for.

// fsNode is the InodeEmbedder backing every file and directory exposed
// over FUSE.
type fsNode struct {
	fs.Inode
	sess *Session
	ino  uint32
}

var (
	_ fs.NodeLookuper  = (*fsNode)(nil)
	_ fs.NodeReaddirer = (*fsNode)(nil)
	_ fs.NodeMkdirer   = (*fsNode)(nil)
	_ fs.NodeRmdirer   = (*fsNode)(nil)
	_ fs.NodeCreater   = (*fsNode)(nil)
	_ fs.NodeUnlinker  = (*fsNode)(nil)
	_ fs.NodeOpener    = (*fsNode)(nil)
	_ fs.NodeReader    = (*fsNode)(nil)
	_ fs.NodeWriter    = (*fsNode)(nil)
	_ fs.NodeGetattrer = (*fsNode)(nil)
	_ fs.NodeSetattrer = (*fsNode)(nil)
	_ fs.NodeFlusher   = (*fsNode)(nil)
	_ fs.NodeReleaser  = (*fsNode)(nil)
)

// Root builds the InodeEmbedder for sess's root directory, for passing to
// fs.Mount as the RootData.
func Root(sess *Session) fs.InodeEmbedder {
	return &fsNode{sess: sess, ino: rootIno}
}

func (n *fsNode) child(ino uint32) *fsNode {
	return &fsNode{sess: n.sess, ino: ino}
}

func stableAttr(in *inode) fs.StableAttr {
	mode := uint32(syscall.S_IFREG)
	if in.Type == typeDir {
		mode = syscall.S_IFDIR
	}
	return fs.StableAttr{Mode: mode, Ino: uint64(in.Ino)}
}

func fillAttr(in *inode, out *fuse.Attr) {
	out.Ino = uint64(in.Ino)
	out.Size = uint64(in.Size)
	out.Mode = in.Attr.Mode
	out.Nlink = in.Attr.Nlink
	if out.Nlink == 0 {
		out.Nlink = 1
	}
	out.Atime = uint64(in.Attr.Atime)
	out.Mtime = uint64(in.Attr.Mtime)
	out.Ctime = uint64(in.Attr.Ctime)
	out.Blksize = BlockSize
	out.Blocks = uint64(numLogicalBlocks(in.Size))
}

func (n *fsNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	n.sess.Mu.Lock()
	defer n.sess.Mu.Unlock()

	child, err := n.sess.Lookup(n.ino, name)
	if err != nil {
		return nil, ErrnoOf(err)
	}
	fillAttr(child, &out.Attr)
	return n.NewInode(ctx, n.child(child.Ino), stableAttr(child)), 0
}

type dirStream struct {
	entries []fuse.DirEntry
	pos     int
}

func (d *dirStream) HasNext() bool { return d.pos < len(d.entries) }

func (d *dirStream) Next() (fuse.DirEntry, syscall.Errno) {
	e := d.entries[d.pos]
	d.pos++
	return e, 0
}

func (d *dirStream) Close() {}

func (n *fsNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	n.sess.Mu.Lock()
	defer n.sess.Mu.Unlock()

	ents, err := n.sess.Readdir(n.ino)
	if err != nil {
		return nil, ErrnoOf(err)
	}

	out := make([]fuse.DirEntry, 0, len(ents))
	for _, e := range ents {
		child, err := n.sess.Getattr(e.Ino)
		if err != nil {
			return nil, ErrnoOf(err)
		}
		mode := uint32(syscall.S_IFREG)
		if child.Type == typeDir {
			mode = syscall.S_IFDIR
		}
		out = append(out, fuse.DirEntry{Name: e.Name, Ino: uint64(e.Ino), Mode: mode})
	}
	return &dirStream{entries: out}, 0
}

func (n *fsNode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	n.sess.Mu.Lock()
	defer n.sess.Mu.Unlock()

	child, err := n.sess.Mkdir(n.ino, name, mode)
	if err != nil {
		return nil, ErrnoOf(err)
	}
	fillAttr(child, &out.Attr)
	return n.NewInode(ctx, n.child(child.Ino), stableAttr(child)), 0
}

func (n *fsNode) Rmdir(ctx context.Context, name string) syscall.Errno {
	n.sess.Mu.Lock()
	defer n.sess.Mu.Unlock()

	return ErrnoOf(n.sess.Rmdir(n.ino, name))
}

func (n *fsNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	n.sess.Mu.Lock()
	defer n.sess.Mu.Unlock()

	child, err := n.sess.Create(n.ino, name, mode)
	if err != nil {
		return nil, nil, 0, ErrnoOf(err)
	}
	fillAttr(child, &out.Attr)
	inode := n.NewInode(ctx, n.child(child.Ino), stableAttr(child))
	return inode, nil, 0, 0
}

func (n *fsNode) Unlink(ctx context.Context, name string) syscall.Errno {
	n.sess.Mu.Lock()
	defer n.sess.Mu.Unlock()

	return ErrnoOf(n.sess.Unlink(n.ino, name))
}

func (n *fsNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, 0, 0
}

func (n *fsNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n.sess.Mu.Lock()
	defer n.sess.Mu.Unlock()

	got, err := n.sess.Read(n.ino, off, dest)
	if err != nil {
		return nil, ErrnoOf(err)
	}
	return fuse.ReadResultData(dest[:got]), 0
}

func (n *fsNode) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	n.sess.Mu.Lock()
	defer n.sess.Mu.Unlock()

	got, err := n.sess.Write(n.ino, off, data)
	if err != nil {
		return uint32(got), ErrnoOf(err)
	}
	return uint32(got), 0
}

func (n *fsNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	n.sess.Mu.Lock()
	defer n.sess.Mu.Unlock()

	in, err := n.sess.Getattr(n.ino)
	if err != nil {
		return ErrnoOf(err)
	}
	fillAttr(in, &out.Attr)
	return 0
}

func (n *fsNode) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	n.sess.Mu.Lock()
	defer n.sess.Mu.Unlock()

	if size, ok := in.GetSize(); ok {
		if err := n.sess.Truncate(n.ino, uint32(size)); err != nil {
			return ErrnoOf(err)
		}
	}
	if rawMode, ok := in.GetMode(); ok {
		if err := n.sess.Chmod(n.ino, unixToFileMode(rawMode)); err != nil {
			return ErrnoOf(err)
		}
	}
	if atime, ok := in.GetATime(); ok {
		if mtime, ok := in.GetMTime(); ok {
			if err := n.sess.Utimens(n.ino, atime.Unix(), mtime.Unix()); err != nil {
				return ErrnoOf(err)
			}
		}
	}

	attr, err := n.sess.Getattr(n.ino)
	if err != nil {
		return ErrnoOf(err)
	}
	fillAttr(attr, &out.Attr)
	return 0
}

func (n *fsNode) Flush(ctx context.Context, f fs.FileHandle) syscall.Errno {
	return 0
}

func (n *fsNode) Release(ctx context.Context, f fs.FileHandle) syscall.Errno {
	return 0
}
