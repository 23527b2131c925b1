package tinyfs

// walk.go implements the pointer-walk abstraction shared by the directory
// engine, file read/write, and unlink: given an inode and a logical block
// index, translate to/from a physical (data-region-relative) block number,
// allocating indirect blocks and data blocks on demand. spec.md sec 4.E /
// sec 9 "Walk iterator".

// numLogicalBlocks returns how many logical blocks a size-byte file spans.
func numLogicalBlocks(size uint32) int {
	return int((size + BlockSize - 1) / BlockSize)
}

// readIndirect loads the pointer table stored in indirect block ptrBlk
// (a data-region-relative block number).
func (s *Session) readIndirect(ptrBlk int32) ([PointersPerIndirectBlock]int32, error) {
	var ptrs [PointersPerIndirectBlock]int32
	buf := make([]byte, BlockSize)
	if err := s.readDataBlock(uint32(ptrBlk), buf); err != nil {
		return ptrs, err
	}
	for i := 0; i < PointersPerIndirectBlock; i++ {
		ptrs[i] = int32(le32(buf[i*4 : i*4+4]))
	}
	return ptrs, nil
}

func (s *Session) writeIndirect(ptrBlk int32, ptrs [PointersPerIndirectBlock]int32) error {
	buf := make([]byte, BlockSize)
	for i, p := range ptrs {
		putLE32(buf[i*4:i*4+4], uint32(p))
	}
	return s.writeDataBlock(uint32(ptrBlk), buf)
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// logicalToSlot splits a logical block index into either a direct slot or
// an (indirect block index, slot within that block) pair.
func logicalToSlot(logical int) (direct bool, indIdx, slot int) {
	if logical < NumDirect {
		return true, 0, logical
	}
	rem := logical - NumDirect
	return false, rem / PointersPerIndirectBlock, rem % PointersPerIndirectBlock
}

// mapLogical returns the physical data block mapped to an inode's logical
// block, or (0, false) if that logical block has never been written.
func (s *Session) mapLogical(in *inode, logical int) (phys uint32, mapped bool, err error) {
	if logical < 0 || logical >= MaxLogicalBlocks {
		return 0, false, errTooLarge("map_logical", "")
	}
	isDirect, indIdx, slot := logicalToSlot(logical)
	if isDirect {
		p := in.Direct[slot]
		if p == unmapped {
			return 0, false, nil
		}
		return uint32(p), true, nil
	}

	indBlk := in.Indirect[indIdx]
	if indBlk == unmapped {
		return 0, false, nil
	}
	ptrs, err := s.readIndirect(indBlk)
	if err != nil {
		return 0, false, err
	}
	p := ptrs[slot]
	if p == unmapped {
		return 0, false, nil
	}
	return uint32(p), true, nil
}

// ensureBlock returns the physical data block mapped to an inode's logical
// block, allocating a new data block (and, if needed, a new indirect
// pointer block) when that logical block has never been written. in is
// mutated in place; callers must writeInode afterward.
func (s *Session) ensureBlock(in *inode, logical int) (uint32, error) {
	if logical < 0 || logical >= MaxLogicalBlocks {
		return 0, errTooLarge("ensure_block", "")
	}
	isDirect, indIdx, slot := logicalToSlot(logical)

	if isDirect {
		if in.Direct[slot] != unmapped {
			return uint32(in.Direct[slot]), nil
		}
		bno, err := s.allocBlock()
		if err != nil {
			return 0, err
		}
		if err := s.writeDataBlock(bno, zeroedBlock()); err != nil {
			return 0, err
		}
		in.Direct[slot] = int32(bno)
		return bno, nil
	}

	if in.Indirect[indIdx] == unmapped {
		ibno, err := s.allocBlock()
		if err != nil {
			return 0, err
		}
		var empty [PointersPerIndirectBlock]int32
		for i := range empty {
			empty[i] = unmapped
		}
		if err := s.writeIndirect(int32(ibno), empty); err != nil {
			return 0, err
		}
		in.Indirect[indIdx] = int32(ibno)
	}

	ptrs, err := s.readIndirect(in.Indirect[indIdx])
	if err != nil {
		return 0, err
	}
	if ptrs[slot] != unmapped {
		return uint32(ptrs[slot]), nil
	}

	bno, err := s.allocBlock()
	if err != nil {
		return 0, err
	}
	if err := s.writeDataBlock(bno, zeroedBlock()); err != nil {
		return 0, err
	}
	ptrs[slot] = int32(bno)
	if err := s.writeIndirect(in.Indirect[indIdx], ptrs); err != nil {
		return 0, err
	}
	return bno, nil
}

// forEachMapped calls fn for every logical block in [0, numLogicalBlocks(in.Size))
// that has a physical mapping, in ascending logical order.
func (s *Session) forEachMapped(in *inode, fn func(logical int, phys uint32) error) error {
	n := numLogicalBlocks(in.Size)
	for logical := 0; logical < n; logical++ {
		phys, mapped, err := s.mapLogical(in, logical)
		if err != nil {
			return err
		}
		if !mapped {
			continue
		}
		if err := fn(logical, phys); err != nil {
			return err
		}
	}
	return nil
}

// freeAllBlocks releases every data block (and indirect pointer block)
// owned by in, for use by unlink and rmdir. It resets in's pointer arrays
// in memory to unmapped but neither writes nor frees the inode itself.
func (s *Session) freeAllBlocks(in *inode) error {
	n := numLogicalBlocks(in.Size)
	if n > MaxLogicalBlocks {
		n = MaxLogicalBlocks
	}
	for logical := 0; logical < n; logical++ {
		phys, mapped, err := s.mapLogical(in, logical)
		if err != nil {
			return err
		}
		if mapped {
			if err := s.freeBlock(phys); err != nil {
				return err
			}
		}
	}
	for i, ib := range in.Indirect {
		if ib != unmapped {
			if err := s.freeBlock(uint32(ib)); err != nil {
				return err
			}
			in.Indirect[i] = unmapped
		}
	}
	for i := range in.Direct {
		in.Direct[i] = unmapped
	}
	return nil
}
