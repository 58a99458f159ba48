package lha

// methodDir is the compress_method tag reserved for directory entries.
const methodDir = "-lhd-"

// OSType is the origin-OS tag carried in a header; only OSMacOS changes
// decoding behavior (it triggers MacBinary header stripping).
type OSType byte

const (
	OSUnknown OSType = iota
	OSMacOS
	OSUnix
	OSWindows
	OSOther
)

// ExtraFlags records which optional metadata groups a header carries.
type ExtraFlags uint8

const (
	FlagUnixOwner ExtraFlags = 1 << iota
	FlagUnixPerms
	FlagWinTimes
)

// FileHeader is one archive member's metadata, produced by the external
// basic reader (§1) and consumed by the iterator and extractor. The
// iterator never mutates a header it has already yielded: a directory
// awaiting deferred metadata gets its own cloned copy (cloneDirEntry),
// so ownership never needs to be shared or tracked.
type FileHeader struct {
	Path           string
	Filename       string
	CompressMethod string
	Length         int64
	CRC            uint16
	OSType         OSType
	SymlinkTarget  string
	Timestamp      int64
	ExtraFlags     ExtraFlags

	UnixUID   uint32
	UnixGID   uint32
	UnixPerms uint32

	WinCreateTime int64
	WinModTime    int64
	WinAccessTime int64
}

// FullPath joins the directory prefix and leaf name into one
// archive-relative path.
func (h *FileHeader) FullPath() string {
	if h == nil {
		return ""
	}
	return h.Path + h.Filename
}

// IsDir reports whether this header is a directory marker (-lhd-).
func (h *FileHeader) IsDir() bool {
	return h.CompressMethod == methodDir
}
