// internal/types/errors.go

package types

import "errors"

// Sentinel error taxonomy. Command-path code wraps one of these with
// fmt.Errorf("%w: ...", types.ErrX) so callers can classify failures with
// errors.Is regardless of the wrapping message, the way the teacher's
// handlers translate repository errors into a Response{Code, Msg}.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrStorageFailure  = errors.New("storage failure")
)
