package flatten

import (
	"errors"
	"fmt"
)

var (
	// ErrTooDeep is returned when the table still holds nested columns after
	// Options.MaxPasses passes.
	ErrTooDeep = errors.New("flatten: nesting exceeds maximum passes")

	// ErrShapeMismatch is wrapped by MalformedRecordError when a column
	// flagged uniform holds a cell of another shape at expansion time.
	ErrShapeMismatch = errors.New("flatten: shape mismatch")
)

// Reasons carried by MalformedRecordError.
const (
	ReasonShapeMismatch = "shape mismatch"
	ReasonMalformedJSON = "malformed json"
)

// MalformedRecordError describes a single bad cell. Row is the position of
// the row in the table being processed.
type MalformedRecordError struct {
	Row    int
	Column string
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("flatten: row %d column %q: %s", e.Row, e.Column, e.Reason)
	}
	return fmt.Sprintf("flatten: row %d column %q: %s: %v", e.Row, e.Column, e.Reason, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }
