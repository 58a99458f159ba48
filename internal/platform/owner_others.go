//go:build !unix

package platform

// Chown is a no-op on platforms with no Unix ownership model; the
// extractor already treats chown failures as best-effort, so this is
// silently tolerated rather than surfaced as ErrUnsupported.
func Chown(path string, uid, gid int) error {
	return nil
}
