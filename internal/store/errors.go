package store

import (
	"errors"
	"strings"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrCodeConflict reports that a freshly drawn revisit code collided with a
// code already held by another pass. Callers retry with a new draw.
var ErrCodeConflict = errors.New("revisit code conflict")

// isUniqueViolation reports whether err is a UNIQUE constraint failure on
// the given column (matched as "table.column" in the driver message).
func isUniqueViolation(err error, column string) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return false
	}
	return strings.Contains(se.Error(), column)
}
