package dragmove

import "errors"

var (
	// ErrAlreadyInFolder marks a drop onto the folder the entry is already in.
	ErrAlreadyInFolder = errors.New("the item is already in that folder")

	// ErrNotEntryMove marks an operation that needs an entry payload.
	ErrNotEntryMove = errors.New("the drag does not carry a drive item")

	// ErrNoDrag marks a drop or hover without an active drag.
	ErrNoDrag = errors.New("no drag in progress")
)

// MoveCycleError rejects a move that would make an entry its own parent or
// put a folder inside one of its descendants.
type MoveCycleError struct {
	EntryID  int64
	TargetID int64
	Self     bool
}

func (e *MoveCycleError) Error() string {
	if e.Self {
		return "An item cannot be moved into itself"
	}
	return "A folder cannot be moved into one of its own subfolders"
}

// IsCycle reports whether err is a MoveCycleError.
func IsCycle(err error) bool {
	var cerr *MoveCycleError
	return errors.As(err, &cerr)
}
