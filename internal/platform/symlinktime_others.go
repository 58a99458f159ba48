//go:build !unix

package platform

// SetSymlinkTimes has no portable equivalent outside Unix's
// AT_SYMLINK_NOFOLLOW utime family; the extractor treats this as a
// clearly-named, tolerated no-op rather than a fatal error.
func SetSymlinkTimes(path string, mtime int64) error {
	return ErrUnsupported
}
