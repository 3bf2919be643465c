//go:build !windows && !unix

package materialize

import "os"

func openNoFollow(path string) (*os.File, error) {
	return os.Open(path)
}
