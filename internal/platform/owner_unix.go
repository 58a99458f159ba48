//go:build unix

package platform

import "os"

// Chown sets a path's owning uid/gid. Per §7, failure here is ignored
// by the caller (non-root processes on Unix cannot chown to an
// arbitrary owner) — this function still reports the error so a caller
// that wants to log it can.
func Chown(path string, uid, gid int) error {
	return os.Chown(path, uid, gid)
}
