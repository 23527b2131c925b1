package tinyfs

// inode is the in-memory representation of an on-disk inode record. Every
// read from disk unpacks into this shape; every write packs it back.
type inode struct {
	Ino      uint32
	Valid    bool
	Size     uint32
	Type     fileType
	Link     uint32
	Direct   [NumDirect]int32
	Indirect [NumIndirect]int32
	Attr     onDiskAttr
}

func (in *inode) toDisk() onDiskInode {
	d := onDiskInode{
		Ino:      uint16(in.Ino),
		Size:     in.Size,
		Type:     in.Type,
		Link:     in.Link,
		Direct:   in.Direct,
		Indirect: in.Indirect,
		Attr:     in.Attr,
	}
	if in.Valid {
		d.Valid = 1
	}
	return d
}

func (in *inode) fromDisk(ino uint32, d *onDiskInode) {
	in.Ino = ino
	in.Valid = d.Valid != 0
	in.Size = d.Size
	in.Type = d.Type
	in.Link = d.Link
	in.Direct = d.Direct
	in.Indirect = d.Indirect
	in.Attr = d.Attr
}

// readInode reads and unpacks inode ino from its packed slot in the inode
// region (spec.md sec 4.E). It does not check the bitmap; callers that need
// to distinguish "never allocated" from "allocated but invalid" should
// consult the bitmap themselves.
func (s *Session) readInode(ino uint32) (*inode, error) {
	if ino >= s.sb.MaxInum {
		return nil, errNotFound("read_inode", "")
	}

	blk, slot := inodeBlockAndSlot(s.iStart(), ino)
	buf := make([]byte, BlockSize)
	if err := s.dev.ReadBlock(blk, buf); err != nil {
		return nil, err
	}

	var d onDiskInode
	rec := buf[slot*inodeSize : (slot+1)*inodeSize]
	if err := unmarshalInode(rec, &d); err != nil {
		return nil, errBadFS("read_inode", "", err)
	}

	in := &inode{}
	in.fromDisk(ino, &d)
	if !in.Valid {
		return nil, errNotFound("read_inode", "")
	}
	return in, nil
}

// writeInode packs in and writes it into its slot in the inode region. It
// read-modifies-writes the whole block so sibling inodes packed into the
// same block are preserved (spec.md sec 4.E).
func (s *Session) writeInode(in *inode) error {
	if in.Ino >= s.sb.MaxInum {
		return errBadFS("write_inode", "", nil)
	}

	blk, slot := inodeBlockAndSlot(s.iStart(), in.Ino)
	buf := make([]byte, BlockSize)
	if err := s.dev.ReadBlock(blk, buf); err != nil {
		return err
	}

	in.Valid = true
	d := in.toDisk()
	rec := buf[slot*inodeSize : (slot+1)*inodeSize]
	if err := marshalInode(&d, rec); err != nil {
		return errIO("write_inode", "", err)
	}

	return s.dev.WriteBlock(blk, buf)
}

// clearInode zeroes an inode's on-disk slot, marking it invalid. Called
// before freeInode releases the bitmap bit.
func (s *Session) clearInode(ino uint32) error {
	blk, slot := inodeBlockAndSlot(s.iStart(), ino)
	buf := make([]byte, BlockSize)
	if err := s.dev.ReadBlock(blk, buf); err != nil {
		return err
	}
	rec := buf[slot*inodeSize : (slot+1)*inodeSize]
	for i := range rec {
		rec[i] = 0
	}
	return s.dev.WriteBlock(blk, buf)
}
