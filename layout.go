package tinyfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// On-disk geometry. These are fixed at build time: changing any of them
// changes the disk image format.
const (
	// BlockSize is the size in bytes of every block on disk, including
	// block 0 (the superblock) and the two bitmap blocks.
	BlockSize = 4096

	// DiskSize is the total size of a disk image.
	DiskSize = 32 * 1024 * 1024

	// TotalBlocks is the number of BlockSize-sized blocks in a disk image.
	TotalBlocks = DiskSize / BlockSize

	// MaxInodes is the maximum number of inodes the inode bitmap can track.
	// 1024 bits is 128 bytes, comfortably inside one block.
	MaxInodes = 1024

	// MaxDataBlocks is the maximum number of data blocks the data bitmap can
	// track. 16384 bits is 2048 bytes, comfortably inside one block.
	MaxDataBlocks = 16384

	// MagicNumber identifies a disk image written by this filesystem.
	MagicNumber uint32 = 0x74465331 // "tFS1"

	// superblockBlock, inodeBitmapBlock, dataBitmapBlock are the fixed
	// low block numbers reserved for filesystem metadata.
	superblockBlock  = 0
	inodeBitmapBlock = 1
	dataBitmapBlock  = 2
	firstMetaBlock   = 3

	// NumDirect is the number of direct block pointers in an inode.
	NumDirect = 16
	// NumIndirect is the number of indirect block pointers in an inode.
	NumIndirect = 8
	// PointersPerIndirectBlock is how many direct pointers one indirect
	// pointer block holds. They occupy the first 4*16 bytes of the block;
	// the rest of the block is unused.
	PointersPerIndirectBlock = 16

	// MaxLogicalBlocks is the number of logical blocks an inode can
	// address (valid indices are 0..MaxLogicalBlocks-1): NumDirect direct
	// slots, plus NumIndirect indirect blocks each holding
	// PointersPerIndirectBlock entries, 16 + 8*16 = 144.
	MaxLogicalBlocks = NumDirect + NumIndirect*PointersPerIndirectBlock

	// MaxFileSize is the largest file size representable by the pointer
	// scheme above.
	MaxFileSize = MaxLogicalBlocks * BlockSize

	// NameMax is the longest name (excluding the NUL terminator) a dirent
	// can hold. Chosen so sizeof(dirent) divides BlockSize evenly.
	NameMax = 251

	// unmapped is the sentinel pointer value meaning "no block here".
	unmapped int32 = -1
)

// fileType distinguishes regular files from directories in an inode.
type fileType uint32

const (
	typeFile fileType = 0
	typeDir  fileType = 1
)

func (t fileType) String() string {
	if t == typeDir {
		return "directory"
	}
	return "file"
}

// onDiskAttr is the embedded POSIX stat-shaped attribute block carried by
// every inode.
type onDiskAttr struct {
	Mode    uint32
	Atime   int64
	Mtime   int64
	Ctime   int64
	BlkSize uint32
	Blocks  uint32
	Nlink   uint32
	Ino     uint32
}

// onDiskInode is the fixed-size packed inode record as stored on disk.
type onDiskInode struct {
	Ino      uint16
	Valid    uint16
	Size     uint32
	Type     fileType
	Link     uint32
	Direct   [NumDirect]int32
	Indirect [NumIndirect]int32
	Attr     onDiskAttr
}

// onDiskDirent is the fixed-size directory entry record as stored on disk.
type onDiskDirent struct {
	Ino   uint16
	Valid uint16
	Name  [NameMax + 1]byte
}

var (
	inodeSize         = binary.Size(onDiskInode{})
	direntSize        = binary.Size(onDiskDirent{})
	inodesPerBlock    = BlockSize / inodeSize
	direntsPerBlock   = BlockSize / direntSize
	inodeRegionBlocks = (MaxInodes + inodesPerBlock - 1) / inodesPerBlock
)

// onDiskSuperblock is the fixed-size record stored in block 0.
type onDiskSuperblock struct {
	Magic          uint32
	MaxInum        uint32
	MaxDnum        uint32
	IBitmapBlk     uint32
	DBitmapBlk     uint32
	IStartBlk      uint32
	DStartBlk      uint32
}

// newSuperblock computes the canonical layout for a freshly formatted disk.
func newSuperblock() onDiskSuperblock {
	return onDiskSuperblock{
		Magic:      MagicNumber,
		MaxInum:    MaxInodes,
		MaxDnum:    MaxDataBlocks,
		IBitmapBlk: inodeBitmapBlock,
		DBitmapBlk: dataBitmapBlock,
		IStartBlk:  firstMetaBlock,
		DStartBlk:  firstMetaBlock + uint32(inodeRegionBlocks),
	}
}

func (sb *onDiskSuperblock) marshal() ([]byte, error) {
	buf := make([]byte, BlockSize)
	w := bytes.NewBuffer(buf[:0])
	if err := binary.Write(w, binary.LittleEndian, sb); err != nil {
		return nil, err
	}
	return buf, nil
}

func (sb *onDiskSuperblock) unmarshal(buf []byte) error {
	r := bytes.NewReader(buf)
	if err := binary.Read(r, binary.LittleEndian, sb); err != nil {
		return err
	}
	if sb.Magic != MagicNumber {
		return fmt.Errorf("tinyfs: bad magic number %#x", sb.Magic)
	}
	return nil
}

func marshalInode(in *onDiskInode, buf []byte) error {
	w := bytes.NewBuffer(buf[:0])
	return binary.Write(w, binary.LittleEndian, in)
}

func unmarshalInode(buf []byte, in *onDiskInode) error {
	r := bytes.NewReader(buf)
	return binary.Read(r, binary.LittleEndian, in)
}

func marshalDirent(d *onDiskDirent, buf []byte) error {
	w := bytes.NewBuffer(buf[:0])
	return binary.Write(w, binary.LittleEndian, d)
}

func unmarshalDirent(buf []byte, d *onDiskDirent) error {
	r := bytes.NewReader(buf)
	return binary.Read(r, binary.LittleEndian, d)
}

// inodeBlockAndSlot returns the inode-region block number and the slot
// within that block for a given inode number, per spec.md sec 4.E.
func inodeBlockAndSlot(istart uint32, ino uint32) (blk uint32, slot int) {
	blk = istart + ino/uint32(inodesPerBlock)
	slot = int(ino % uint32(inodesPerBlock))
	return
}
