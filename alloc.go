package tinyfs

// allocInode finds the lowest-numbered free inode, marks it used, and
// writes the inode bitmap block through to disk. spec.md sec 4.D.
func (s *Session) allocInode() (uint32, error) {
	idx, ok := firstClear(s.iBitmap, s.sb.MaxInum)
	if !ok {
		return 0, errNoSpace("alloc_inode", "")
	}
	bitSet(s.iBitmap, idx)
	if err := s.writeInodeBitmap(); err != nil {
		return 0, err
	}
	s.log.WithField("ino", idx).Debug("allocated inode")
	return idx, nil
}

// freeInode clears an inode's bit and writes the bitmap block through.
func (s *Session) freeInode(ino uint32) error {
	bitClear(s.iBitmap, ino)
	if err := s.writeInodeBitmap(); err != nil {
		return err
	}
	s.log.WithField("ino", ino).Debug("freed inode")
	return nil
}

// allocBlock finds the lowest-numbered free data block, marks it used, and
// writes the data bitmap block through to disk. The returned number is
// relative to the data region start (spec.md sec 4.D).
func (s *Session) allocBlock() (uint32, error) {
	idx, ok := firstClear(s.dBitmap, s.sb.MaxDnum)
	if !ok {
		return 0, errNoSpace("alloc_block", "")
	}
	bitSet(s.dBitmap, idx)
	if err := s.writeDataBitmap(); err != nil {
		return 0, err
	}
	s.log.WithField("bno", idx).Debug("allocated data block")
	return idx, nil
}

// freeBlock clears a data block's bit and writes the bitmap block through.
func (s *Session) freeBlock(bno uint32) error {
	bitClear(s.dBitmap, bno)
	if err := s.writeDataBitmap(); err != nil {
		return err
	}
	s.log.WithField("bno", bno).Debug("freed data block")
	return nil
}

// readDataBlock reads the physical block holding data-region-relative
// block bno.
func (s *Session) readDataBlock(bno uint32, buf []byte) error {
	return s.dev.ReadBlock(s.dStart()+bno, buf)
}

// writeDataBlock writes the physical block holding data-region-relative
// block bno.
func (s *Session) writeDataBlock(bno uint32, buf []byte) error {
	return s.dev.WriteBlock(s.dStart()+bno, buf)
}

// zeroedBlock returns a fresh all-zero block-sized buffer.
func zeroedBlock() []byte {
	return make([]byte, BlockSize)
}
