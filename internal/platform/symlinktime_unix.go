//go:build unix

package platform

import (
	"golang.org/x/sys/unix"
)

// SetSymlinkTimes sets a symlink's own modification time, resolving
// Design Note (b): plain os.Chtimes follows the link and would instead
// stamp whatever the link points at. AT_SYMLINK_NOFOLLOW makes
// UtimesNanoAt operate on the link itself.
func SetSymlinkTimes(path string, mtime int64) error {
	t := unixTime(mtime)
	spec := []unix.Timespec{
		unix.NsecToTimespec(t.UnixNano()),
		unix.NsecToTimespec(t.UnixNano()),
	}
	return unix.UtimesNanoAt(unix.AT_FDCWD, path, spec, unix.AT_SYMLINK_NOFOLLOW)
}
