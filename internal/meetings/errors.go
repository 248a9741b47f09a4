package meetings

import "errors"

var (
	// ErrNotFound means the meeting or one of its children does not exist.
	ErrNotFound = errors.New("meeting not found")
	// ErrNoRecording means a pipeline step needs a recording that was never
	// attached.
	ErrNoRecording = errors.New("meeting has no recording")
	// ErrInvalidState means the requested step is not valid for the
	// meeting's current pipeline state.
	ErrInvalidState = errors.New("invalid pipeline state")
	// ErrInvalidInput means a request payload failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrVersionConflict means a concurrent writer updated the meeting
	// between read and write.
	ErrVersionConflict = errors.New("meeting version conflict")
)
