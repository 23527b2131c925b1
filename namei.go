package tinyfs

import "strings"

// rootIno is the inode number reserved for the filesystem root. Format
// relies on it being the first inode the allocator ever hands out; this
// constant documents that assumption at call sites.
const rootIno uint32 = 0

// lookupPath resolves a slash-separated absolute path to an inode number,
// walking one dirFind per component from the root (spec.md sec 4.G). An
// empty path or "/" resolves to the root itself.
func (s *Session) lookupPath(path string) (uint32, error) {
	parts := splitPath(path)
	cur := rootIno
	for _, p := range parts {
		e, err := s.dirFind(cur, p)
		if err != nil {
			return 0, err
		}
		cur = e.Ino
	}
	return cur, nil
}

// lookupParent resolves the parent directory of path and returns its inode
// number along with the final path component. It does not require the
// final component to exist.
func (s *Session) lookupParent(path string) (parentIno uint32, name string, err error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return 0, "", errNotFound("lookup_parent", path)
	}
	name = parts[len(parts)-1]
	parentIno = rootIno
	for _, p := range parts[:len(parts)-1] {
		e, err := s.dirFind(parentIno, p)
		if err != nil {
			return 0, "", err
		}
		parentIno = e.Ino
	}
	return parentIno, name, nil
}

// splitPath breaks an absolute, slash-separated path into its non-empty
// components. "/", "", and "." all yield no components.
func splitPath(path string) []string {
	raw := strings.Split(path, "/")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p == "" || p == "." {
			continue
		}
		out = append(out, p)
	}
	return out
}
