//go:build windows

package materialize

import "os"

// openNoFollow is a best-effort equivalent of O_NOFOLLOW.
// Windows does not provide an easy O_NOFOLLOW-style open here; this may
// follow reparse points and symlinks. Callers still confine sources to
// the attachment tree.
func openNoFollow(path string) (*os.File, error) {
	return os.Open(path)
}
