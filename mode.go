package tinyfs

import "io/fs"

// This filesystem only ever stores regular files and directories (spec.md
// sec 1 non-goals exclude symlinks, devices, and sockets), so the mode bit
// conversions below only handle those two cases plus permission bits.
const (
	modeFmt  = 0xf000
	modeReg  = 0x8000
	modeDir  = 0x4000
	modeSUID = 0x0800
	modeSGID = 0x0400
	modeSVTX = 0x0200
)

// unixToFileMode converts a raw Unix mode word (as stored in an inode's
// attribute block) to an fs.FileMode.
func unixToFileMode(mode uint32) fs.FileMode {
	res := fs.FileMode(mode & 0777)

	if mode&modeFmt == modeDir {
		res |= fs.ModeDir
	}
	if mode&modeSGID == modeSGID {
		res |= fs.ModeSetgid
	}
	if mode&modeSUID == modeSUID {
		res |= fs.ModeSetuid
	}
	if mode&modeSVTX == modeSVTX {
		res |= fs.ModeSticky
	}
	return res
}

// fileModeToUnix converts an fs.FileMode back to a raw Unix mode word.
func fileModeToUnix(mode fs.FileMode) uint32 {
	res := uint32(mode.Perm())

	if mode&fs.ModeDir == fs.ModeDir {
		res |= modeDir
	} else {
		res |= modeReg
	}
	if mode&fs.ModeSetgid == fs.ModeSetgid {
		res |= modeSGID
	}
	if mode&fs.ModeSetuid == fs.ModeSetuid {
		res |= modeSUID
	}
	if mode&fs.ModeSticky == fs.ModeSticky {
		res |= modeSVTX
	}
	return res
}
