package lha

// DirPolicy selects when a directory's metadata (timestamps, owner,
// permissions) is applied relative to its contents being written.
type DirPolicy int

const (
	// PolicyPlain applies a directory's metadata immediately on
	// creation; the stack is never used.
	PolicyPlain DirPolicy = iota
	// PolicyEndOfDir defers metadata until the next incoming entry's
	// path no longer falls under the directory (archives are typically
	// ordered depth-first, so this lands right after a directory's own
	// contents finish).
	PolicyEndOfDir
	// PolicyEndOfFile defers every directory's metadata until the whole
	// archive is exhausted, then flushes the stack LIFO.
	PolicyEndOfFile
)

// dirStackEntry is the small clone of header fields needed to apply
// metadata to a directory after its contents are fully written. Cloning
// these fields (rather than retaining the original *FileHeader) means
// the stack never needs to coordinate with whatever else might still be
// holding the header the iterator yielded it from (see DESIGN.md,
// "Ownership of headers").
type dirStackEntry struct {
	path       string
	timestamp  int64
	extraFlags ExtraFlags

	unixUID   uint32
	unixGID   uint32
	unixPerms uint32

	winCreateTime int64
	winModTime    int64
	winAccessTime int64

	next *dirStackEntry
}

func cloneDirEntry(h *FileHeader) *dirStackEntry {
	return &dirStackEntry{
		path:          h.FullPath(),
		timestamp:     h.Timestamp,
		extraFlags:    h.ExtraFlags,
		unixUID:       h.UnixUID,
		unixGID:       h.UnixGID,
		unixPerms:     h.UnixPerms,
		winCreateTime: h.WinCreateTime,
		winModTime:    h.WinModTime,
		winAccessTime: h.WinAccessTime,
	}
}

// fakeDirHeader rebuilds a *FileHeader carrying only the metadata an
// entry popped off the stack needs, for re-yielding as a FAKE_DIR entry.
func fakeDirHeader(e *dirStackEntry) *FileHeader {
	return &FileHeader{
		Path:           e.path,
		CompressMethod: methodDir,
		Timestamp:      e.timestamp,
		ExtraFlags:     e.extraFlags,
		UnixUID:        e.unixUID,
		UnixGID:        e.unixGID,
		UnixPerms:      e.unixPerms,
		WinCreateTime:  e.winCreateTime,
		WinModTime:     e.winModTime,
		WinAccessTime:  e.winAccessTime,
	}
}

// dirStack is a singly-linked LIFO of directories awaiting deferred
// metadata application (§4.F).
type dirStack struct {
	top *dirStackEntry
}

func (s *dirStack) push(e *dirStackEntry) {
	e.next = s.top
	s.top = e
}

func (s *dirStack) pop() *dirStackEntry {
	e := s.top
	if e != nil {
		s.top = e.next
	}
	return e
}

func (s *dirStack) empty() bool { return s.top == nil }

// shouldPop reports whether the top of the stack should be popped given
// the path of the next incoming entry ("" meaning end of input).
//
// A pop requested under PolicyPlain "shouldn't happen" per the original
// design (PLAIN never pushes), but is honored as a defensive immediate
// pop rather than a panic — see Design Note (c).
func (s *dirStack) shouldPop(policy DirPolicy, nextPath string) bool {
	if s.top == nil {
		return false
	}
	switch policy {
	case PolicyPlain:
		return true
	case PolicyEndOfFile:
		return nextPath == ""
	default: // PolicyEndOfDir
		if nextPath == "" {
			return true
		}
		prefix := s.top.path
		return len(nextPath) < len(prefix) || nextPath[:len(prefix)] != prefix
	}
}
