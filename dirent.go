package tinyfs

// dirent.go is the directory engine: single-level entry lookup, insertion,
// and removal within one directory inode's data blocks. Path walking lives
// separately in namei.go (spec.md sec 4.F / 4.G splits what the original
// draft's dir_find conflated).

type dirent struct {
	Ino   uint32
	Valid bool
	Name  string
}

func direntFromDisk(d *onDiskDirent) dirent {
	n := 0
	for n < len(d.Name) && d.Name[n] != 0 {
		n++
	}
	return dirent{
		Ino:   uint32(d.Ino),
		Valid: d.Valid != 0,
		Name:  string(d.Name[:n]),
	}
}

func direntToDisk(e dirent) (onDiskDirent, error) {
	var d onDiskDirent
	if len(e.Name) > NameMax {
		return d, errTooLarge("dirent", e.Name)
	}
	d.Ino = uint16(e.Ino)
	if e.Valid {
		d.Valid = 1
	}
	copy(d.Name[:], e.Name)
	return d, nil
}

// readDirBlock unpacks all dirent slots out of one data block.
func readDirBlock(buf []byte) ([]dirent, error) {
	out := make([]dirent, 0, direntsPerBlock)
	for i := 0; i < direntsPerBlock; i++ {
		var d onDiskDirent
		rec := buf[i*direntSize : (i+1)*direntSize]
		if err := unmarshalDirent(rec, &d); err != nil {
			return nil, errBadFS("read_dir_block", "", err)
		}
		out = append(out, direntFromDisk(&d))
	}
	return out, nil
}

func writeDirSlot(buf []byte, slot int, e dirent) error {
	d, err := direntToDisk(e)
	if err != nil {
		return err
	}
	rec := buf[slot*direntSize : (slot+1)*direntSize]
	return marshalDirent(&d, rec)
}

// dirFind looks up name as a direct child of the directory inode dirIno.
// It returns errNotFound if no live entry with that name exists.
func (s *Session) dirFind(dirIno uint32, name string) (dirent, error) {
	dir, err := s.readInode(dirIno)
	if err != nil {
		return dirent{}, err
	}
	if dir.Type != typeDir {
		return dirent{}, errBadFS("dir_find", name, nil)
	}

	var found dirent
	var hit bool
	buf := make([]byte, BlockSize)
	err = s.forEachMapped(dir, func(logical int, phys uint32) error {
		if hit {
			return nil
		}
		if err := s.readDataBlock(phys, buf); err != nil {
			return err
		}
		ents, err := readDirBlock(buf)
		if err != nil {
			return err
		}
		for _, e := range ents {
			if e.Valid && e.Name == name {
				found, hit = e, true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return dirent{}, err
	}
	if !hit {
		return dirent{}, errNotFound("dir_find", name)
	}
	return found, nil
}

// dirAdd inserts a (name -> childIno) entry into dirIno's directory data,
// reusing the first invalid slot found (maintaining the "prefix of valid
// entries" invariant when possible) or appending a fresh block otherwise.
// op labels the caller for error messages and logging.
func (s *Session) dirAdd(dirIno, childIno uint32, name, op string) error {
	dir, err := s.readInode(dirIno)
	if err != nil {
		return err
	}

	if _, err := s.dirFind(dirIno, name); err == nil {
		return errExists(op, name)
	} else if fe, ok := err.(*Error); !ok || fe.Kind != KindNotFound {
		return err
	}

	buf := make([]byte, BlockSize)
	placed := false
	n := numLogicalBlocks(dir.Size)

	for logical := 0; logical < n && !placed; logical++ {
		phys, mapped, err := s.mapLogical(dir, logical)
		if err != nil {
			return err
		}
		if !mapped {
			continue
		}
		if err := s.readDataBlock(phys, buf); err != nil {
			return err
		}
		ents, err := readDirBlock(buf)
		if err != nil {
			return err
		}
		for slot, e := range ents {
			if !e.Valid {
				if err := writeDirSlot(buf, slot, dirent{Ino: childIno, Valid: true, Name: name}); err != nil {
					return err
				}
				if err := s.writeDataBlock(phys, buf); err != nil {
					return err
				}
				placed = true
				break
			}
		}
	}

	if !placed {
		logical := n
		phys, err := s.ensureBlock(dir, logical)
		if err != nil {
			return err
		}
		for i := range buf {
			buf[i] = 0
		}
		if err := writeDirSlot(buf, 0, dirent{Ino: childIno, Valid: true, Name: name}); err != nil {
			return err
		}
		if err := s.writeDataBlock(phys, buf); err != nil {
			return err
		}
		dir.Size = uint32(logical+1) * BlockSize
	}

	return s.writeInode(dir)
}

// dirRemove invalidates the entry named name within dirIno's directory
// data. If removing it empties the owning block and that block is the last
// logical block of the directory, the block is freed and the directory
// shrunk, preserving the "no valid entry after an invalid one" invariant.
func (s *Session) dirRemove(dirIno uint32, name string) error {
	dir, err := s.readInode(dirIno)
	if err != nil {
		return err
	}

	n := numLogicalBlocks(dir.Size)
	buf := make([]byte, BlockSize)
	removedLogical := -1

	for logical := 0; logical < n; logical++ {
		phys, mapped, err := s.mapLogical(dir, logical)
		if err != nil {
			return err
		}
		if !mapped {
			continue
		}
		if err := s.readDataBlock(phys, buf); err != nil {
			return err
		}
		ents, err := readDirBlock(buf)
		if err != nil {
			return err
		}
		for slot, e := range ents {
			if e.Valid && e.Name == name {
				for i := slot; i < len(ents)-1; i++ {
					ents[i] = ents[i+1]
				}
				ents[len(ents)-1] = dirent{}
				for i := slot; i < len(ents); i++ {
					if err := writeDirSlot(buf, i, ents[i]); err != nil {
						return err
					}
				}
				if err := s.writeDataBlock(phys, buf); err != nil {
					return err
				}
				removedLogical = logical
				break
			}
		}
		if removedLogical >= 0 {
			break
		}
	}

	if removedLogical < 0 {
		return errNotFound("dir_remove", name)
	}

	if removedLogical == n-1 {
		if err := s.shrinkIfBlockEmpty(dir, removedLogical); err != nil {
			return err
		}
	}

	return s.writeInode(dir)
}

// shrinkIfBlockEmpty frees the trailing logical block of dir if it has no
// remaining valid entries, and updates dir.Size to drop it. Assumes logical
// is dir's last logical block.
func (s *Session) shrinkIfBlockEmpty(dir *inode, logical int) error {
	phys, mapped, err := s.mapLogical(dir, logical)
	if err != nil || !mapped {
		return err
	}
	buf := make([]byte, BlockSize)
	if err := s.readDataBlock(phys, buf); err != nil {
		return err
	}
	ents, err := readDirBlock(buf)
	if err != nil {
		return err
	}
	for _, e := range ents {
		if e.Valid {
			return nil
		}
	}

	if err := s.freeBlock(phys); err != nil {
		return err
	}
	isDirect, indIdx, slot := logicalToSlot(logical)
	if isDirect {
		dir.Direct[slot] = unmapped
	} else {
		ptrs, err := s.readIndirect(dir.Indirect[indIdx])
		if err != nil {
			return err
		}
		ptrs[slot] = unmapped
		if err := s.writeIndirect(dir.Indirect[indIdx], ptrs); err != nil {
			return err
		}
	}
	dir.Size = uint32(logical) * BlockSize
	return nil
}

// dirIsEmpty reports whether dirIno has any live entries besides "/", "."
// and "..". Used by rmdir to enforce the non-empty-directory invariant.
func (s *Session) dirIsEmpty(dirIno uint32) (bool, error) {
	dir, err := s.readInode(dirIno)
	if err != nil {
		return false, err
	}
	empty := true
	buf := make([]byte, BlockSize)
	err = s.forEachMapped(dir, func(logical int, phys uint32) error {
		if err := s.readDataBlock(phys, buf); err != nil {
			return err
		}
		ents, err := readDirBlock(buf)
		if err != nil {
			return err
		}
		for _, e := range ents {
			if e.Valid && e.Name != "." && e.Name != ".." && e.Name != "/" {
				empty = false
			}
		}
		return nil
	})
	return empty, err
}

// dirList returns every live entry in dirIno's directory data, in on-disk
// order, for readdir.
func (s *Session) dirList(dirIno uint32) ([]dirent, error) {
	dir, err := s.readInode(dirIno)
	if err != nil {
		return nil, err
	}
	if dir.Type != typeDir {
		return nil, errBadFS("dir_list", "", nil)
	}

	var out []dirent
	buf := make([]byte, BlockSize)
	err = s.forEachMapped(dir, func(logical int, phys uint32) error {
		if err := s.readDataBlock(phys, buf); err != nil {
			return err
		}
		ents, err := readDirBlock(buf)
		if err != nil {
			return err
		}
		for _, e := range ents {
			if e.Valid {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}
