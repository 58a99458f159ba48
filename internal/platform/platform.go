// Package platform implements the small set of OS primitives the
// extractor needs (§6, "Platform abstractions required"): creating
// directories and symlinks, setting ownership/permissions/timestamps,
// and checking what (if anything) already exists at a path. The
// OS-specific pieces are split by build tag, in the style of the
// reference fileid_linux.go/fileid_others.go family.
package platform

import (
	"errors"
	"os"
)

// ErrUnsupported is returned by platform calls with no equivalent on the
// current OS (e.g. setting a symlink's own timestamp on a platform
// without an AT_SYMLINK_NOFOLLOW-style utime call).
var ErrUnsupported = errors.New("platform: not supported on this OS")

// Kind classifies what already exists at a path.
type Kind int

const (
	KindNone Kind = iota
	KindFile
	KindDir
	KindOther
)

// Exists reports what kind of thing (if anything) is at path, without
// following a trailing symlink.
func Exists(path string) (Kind, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return KindNone, nil
		}
		return KindNone, err
	}
	switch {
	case fi.IsDir():
		return KindDir, nil
	case fi.Mode().IsRegular():
		return KindFile, nil
	default:
		return KindOther, nil
	}
}

// Mkdir creates a directory, tolerating "already exists as a directory"
// per §4.G's error-handling rule.
func Mkdir(path string, mode os.FileMode) error {
	if err := os.Mkdir(path, mode); err != nil {
		if kind, kerr := Exists(path); kerr == nil && kind == KindDir {
			return nil
		}
		return err
	}
	return nil
}

// Symlink creates a symbolic link at path pointing at target.
func Symlink(target, path string) error {
	return os.Symlink(target, path)
}

// Chmod sets a path's permission bits. Per §7, failure here is fatal to
// the entry being extracted.
func Chmod(path string, mode os.FileMode) error {
	return os.Chmod(path, mode)
}

// SetTimes sets a regular file or directory's modification time. Per
// §7, failure here propagates (it is not the best-effort chown case).
func SetTimes(path string, mtime int64) error {
	t := unixTime(mtime)
	return os.Chtimes(path, t, t)
}
