package kaiku

import "errors"

// Failures are strictly track-scoped: no error in one track's capture or
// playback may abort or corrupt another track's state.
var (
	// ErrCaptureUnavailable is returned when the capture collaborator cannot
	// acquire an input stream (permission denied, no device). The track
	// returns to idle and no retry is attempted automatically.
	ErrCaptureUnavailable = errors.New("capture unavailable")

	// ErrDecodeFailed is returned when captured audio cannot be decoded
	// (malformed or empty). The captured bytes are discarded and the track's
	// prior clip, if any, is left untouched.
	ErrDecodeFailed = errors.New("decode failed")

	// ErrAlreadyCapturing is returned when capture is started on a track that
	// is not idle. It is a local guard, never surfaced as a user-facing error.
	ErrAlreadyCapturing = errors.New("already capturing")

	// ErrSchedulingRejected is returned by a Device when it refuses a start
	// request, e.g. one with a start time already in the past.
	ErrSchedulingRejected = errors.New("scheduling rejected")

	// ErrInvalidState is returned for mutations that are not legal in the
	// track's current state, such as moving a clip mid-capture.
	ErrInvalidState = errors.New("invalid state")
)
