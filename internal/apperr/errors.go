// Package apperr defines application error values shared across layers.
package apperr

import "errors"

// ErrNoPendingEdit is returned when confirm or discard is requested
// while no edit preview is active.
var ErrNoPendingEdit = errors.New("no pending edit")
