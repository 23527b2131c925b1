package tinyfs

import (
	"io/fs"
	"time"
)

// fileops.go is the filesystem-operation layer the FUSE host glue in
// fusefs.go calls into. Every operation here takes an already-resolved
// inode number (as go-fuse hands out per Inode after Lookup) rather than a
// path string; the operations on a child (Lookup, Mkdir, Rmdir, Create,
// Unlink) take the parent's inode number plus one name component, and none
// of them looks past a single directory level.

// Getattr returns the inode record for ino.
func (s *Session) Getattr(ino uint32) (*inode, error) {
	return s.readInode(ino)
}

// Lookup resolves name as a direct child of parentIno and returns its
// inode record.
func (s *Session) Lookup(parentIno uint32, name string) (*inode, error) {
	e, err := s.dirFind(parentIno, name)
	if err != nil {
		return nil, err
	}
	return s.readInode(e.Ino)
}

// Readdir lists the live entries of directory dirIno.
func (s *Session) Readdir(dirIno uint32) ([]dirent, error) {
	return s.dirList(dirIno)
}

// Mkdir creates a new, empty subdirectory named name under parentIno.
func (s *Session) Mkdir(parentIno uint32, name string, mode uint32) (*inode, error) {
	parent, err := s.readInode(parentIno)
	if err != nil {
		return nil, err
	}
	if parent.Type != typeDir {
		return nil, errBadFS("mkdir", name, nil)
	}

	ino, err := s.allocInode()
	if err != nil {
		return nil, err
	}

	now := nowUnix()
	child := &inode{Ino: ino, Valid: true, Type: typeDir}
	for i := range child.Direct {
		child.Direct[i] = unmapped
	}
	for i := range child.Indirect {
		child.Indirect[i] = unmapped
	}
	child.Attr.Mode = modeDir | (mode & 0777)
	child.Attr.Ctime, child.Attr.Mtime, child.Attr.Atime = now, now, now
	if err := s.writeInode(child); err != nil {
		return nil, err
	}

	if err := s.dirAdd(ino, ino, "/", "mkdir"); err != nil {
		return nil, err
	}
	if err := s.dirAdd(ino, ino, ".", "mkdir"); err != nil {
		return nil, err
	}
	if err := s.dirAdd(ino, parentIno, "..", "mkdir"); err != nil {
		return nil, err
	}
	if err := s.dirAdd(parentIno, ino, name, "mkdir"); err != nil {
		return nil, err
	}

	return child, nil
}

// Rmdir removes the empty subdirectory named name under parentIno.
func (s *Session) Rmdir(parentIno uint32, name string) error {
	e, err := s.dirFind(parentIno, name)
	if err != nil {
		return err
	}
	child, err := s.readInode(e.Ino)
	if err != nil {
		return err
	}
	if child.Type != typeDir {
		return errBadFS("rmdir", name, nil)
	}

	empty, err := s.dirIsEmpty(e.Ino)
	if err != nil {
		return err
	}
	if !empty {
		return errNotEmpty("rmdir", name)
	}

	if err := s.dirRemove(parentIno, name); err != nil {
		return err
	}
	if err := s.clearInode(e.Ino); err != nil {
		return err
	}
	if err := s.freeAllBlocks(child); err != nil {
		return err
	}
	return s.freeInode(e.Ino)
}

// Create makes a new, empty regular file named name under parentIno.
func (s *Session) Create(parentIno uint32, name string, mode uint32) (*inode, error) {
	parent, err := s.readInode(parentIno)
	if err != nil {
		return nil, err
	}
	if parent.Type != typeDir {
		return nil, errBadFS("create", name, nil)
	}

	ino, err := s.allocInode()
	if err != nil {
		return nil, err
	}

	now := nowUnix()
	child := &inode{Ino: ino, Valid: true, Type: typeFile, Link: 1}
	for i := range child.Direct {
		child.Direct[i] = unmapped
	}
	for i := range child.Indirect {
		child.Indirect[i] = unmapped
	}
	child.Attr.Mode = modeReg | (mode & 0777)
	child.Attr.Ctime, child.Attr.Mtime, child.Attr.Atime = now, now, now
	if err := s.writeInode(child); err != nil {
		return nil, err
	}

	if err := s.dirAdd(parentIno, ino, name, "create"); err != nil {
		return nil, err
	}
	return child, nil
}

// Unlink removes the regular file named name under parentIno and releases
// its blocks and inode.
func (s *Session) Unlink(parentIno uint32, name string) error {
	e, err := s.dirFind(parentIno, name)
	if err != nil {
		return err
	}
	child, err := s.readInode(e.Ino)
	if err != nil {
		return err
	}
	if child.Type == typeDir {
		return errBadFS("unlink", name, nil)
	}

	if err := s.dirRemove(parentIno, name); err != nil {
		return err
	}
	if err := s.clearInode(e.Ino); err != nil {
		return err
	}
	if err := s.freeAllBlocks(child); err != nil {
		return err
	}
	return s.freeInode(e.Ino)
}

// Read copies up to len(dst) bytes starting at offset out of ino's data,
// short-reading at end of file exactly like a regular file would.
func (s *Session) Read(ino uint32, offset int64, dst []byte) (int, error) {
	in, err := s.readInode(ino)
	if err != nil {
		return 0, err
	}
	if in.Type != typeFile {
		return 0, errBadFS("read", "", nil)
	}
	if offset < 0 {
		return 0, errBadFS("read", "", nil)
	}
	if offset >= int64(in.Size) {
		return 0, nil
	}

	end := offset + int64(len(dst))
	if end > int64(in.Size) {
		end = int64(in.Size)
	}

	buf := make([]byte, BlockSize)
	total := 0
	for total < int(end-offset) {
		cur := offset + int64(total)
		logical := int(cur / BlockSize)
		inBlock := int(cur % BlockSize)
		want := int(end-offset) - total
		if want > BlockSize-inBlock {
			want = BlockSize - inBlock
		}

		phys, mapped, err := s.mapLogical(in, logical)
		if err != nil {
			return total, err
		}
		if mapped {
			if err := s.readDataBlock(phys, buf); err != nil {
				return total, err
			}
			copy(dst[total:total+want], buf[inBlock:inBlock+want])
		} else {
			for i := 0; i < want; i++ {
				dst[total+i] = 0
			}
		}
		total += want
	}
	return total, nil
}

// Write stores len(src) bytes into ino's data starting at offset, growing
// the file and allocating blocks as needed, up to MaxFileSize.
func (s *Session) Write(ino uint32, offset int64, src []byte) (int, error) {
	in, err := s.readInode(ino)
	if err != nil {
		return 0, err
	}
	if in.Type != typeFile {
		return 0, errBadFS("write", "", nil)
	}
	if offset < 0 {
		return 0, errBadFS("write", "", nil)
	}
	end := offset + int64(len(src))
	if end > int64(MaxFileSize) {
		return 0, errTooLarge("write", "")
	}

	buf := make([]byte, BlockSize)
	total := 0
	for total < len(src) {
		cur := offset + int64(total)
		logical := int(cur / BlockSize)
		inBlock := int(cur % BlockSize)
		want := len(src) - total
		if want > BlockSize-inBlock {
			want = BlockSize - inBlock
		}

		phys, err := s.ensureBlock(in, logical)
		if err != nil {
			return total, err
		}
		if inBlock != 0 || want != BlockSize {
			if err := s.readDataBlock(phys, buf); err != nil {
				return total, err
			}
		}
		copy(buf[inBlock:inBlock+want], src[total:total+want])
		if err := s.writeDataBlock(phys, buf); err != nil {
			return total, err
		}
		total += want
	}

	if uint32(end) > in.Size {
		in.Size = uint32(end)
	}
	in.Attr.Mtime = nowUnix()
	if err := s.writeInode(in); err != nil {
		return total, err
	}
	return total, nil
}

// Truncate changes ino's size, freeing any blocks beyond the new size or
// zero-filling growth, matching regular-file truncate(2) semantics.
func (s *Session) Truncate(ino uint32, size uint32) error {
	in, err := s.readInode(ino)
	if err != nil {
		return err
	}
	if in.Type != typeFile {
		return errBadFS("truncate", "", nil)
	}
	if size > uint32(MaxFileSize) {
		return errTooLarge("truncate", "")
	}

	oldBlocks := numLogicalBlocks(in.Size)
	newBlocks := numLogicalBlocks(size)
	for logical := newBlocks; logical < oldBlocks; logical++ {
		phys, mapped, err := s.mapLogical(in, logical)
		if err != nil {
			return err
		}
		if !mapped {
			continue
		}
		if err := s.freeBlock(phys); err != nil {
			return err
		}
		isDirect, indIdx, slot := logicalToSlot(logical)
		if isDirect {
			in.Direct[slot] = unmapped
		} else if in.Indirect[indIdx] != unmapped {
			ptrs, err := s.readIndirect(in.Indirect[indIdx])
			if err != nil {
				return err
			}
			ptrs[slot] = unmapped
			if err := s.writeIndirect(in.Indirect[indIdx], ptrs); err != nil {
				return err
			}
		}
	}

	if size < in.Size && size%BlockSize != 0 {
		phys, mapped, err := s.mapLogical(in, int(size/BlockSize))
		if err != nil {
			return err
		}
		if mapped {
			buf := make([]byte, BlockSize)
			if err := s.readDataBlock(phys, buf); err != nil {
				return err
			}
			clear(buf[size%BlockSize:])
			if err := s.writeDataBlock(phys, buf); err != nil {
				return err
			}
		}
	}

	in.Size = size
	in.Attr.Mtime = nowUnix()
	return s.writeInode(in)
}

// Chmod updates ino's permission bits, normalizing through fs.FileMode so
// bits this filesystem doesn't model (setuid/gid aside) can't leak in from
// a client; the inode's own file-type bit is always preserved.
func (s *Session) Chmod(ino uint32, mode fs.FileMode) error {
	in, err := s.readInode(ino)
	if err != nil {
		return err
	}
	typeBits := in.Attr.Mode & modeFmt
	in.Attr.Mode = typeBits | (fileModeToUnix(mode) &^ modeFmt)
	in.Attr.Ctime = nowUnix()
	return s.writeInode(in)
}

// Utimens updates ino's recorded access and modification times.
func (s *Session) Utimens(ino uint32, atime, mtime int64) error {
	in, err := s.readInode(ino)
	if err != nil {
		return err
	}
	in.Attr.Atime = atime
	in.Attr.Mtime = mtime
	return s.writeInode(in)
}

func nowUnix() int64 {
	return time.Now().Unix()
}
