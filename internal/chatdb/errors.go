package chatdb

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Store-access error kinds. Each carries actionable guidance because the
// fix is always on the user's side: grant disk access, quit Messages, or
// correct the path. None of them are retried.
var (
	ErrNotFound   = eris.New("message database not found")
	ErrPermission = eris.New("permission denied opening message database")
	ErrLocked     = eris.New("message database is locked")
)

// Guidance returns user-facing resolution steps for a classified
// store-access error, or the empty string for other errors.
func Guidance(err error) string {
	switch {
	case errors.Is(err, ErrPermission):
		return `To resolve this issue:
  1. Open System Settings > Privacy & Security > Full Disk Access
  2. Add your terminal application to the list
  3. Restart your terminal application
  4. Quit the Messages app completely
  5. Try running the command again`
	case errors.Is(err, ErrLocked):
		return "Quit the Messages app completely before running this tool."
	case errors.Is(err, ErrNotFound):
		return `To resolve this issue:
  1. Verify the database path is correct (default: ~/Library/Messages/chat.db)
  2. Ensure the file exists and you have access to it`
	default:
		return ""
	}
}
