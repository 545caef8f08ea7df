// internal/types/errors.go
package types

import (
	"errors"
	"fmt"
)

// Failure classes for the pipeline and workflow. Per-article failures are
// wrapped and logged but never abort a run; ErrStoreUnavailable is the one
// class that does.
var (
	ErrSourceUnavailable        = errors.New("source unavailable")
	ErrClassifierUnavailable    = errors.New("classifier unavailable")
	ErrTranslationFailed        = errors.New("translation failed")
	ErrCorroborationUnavailable = errors.New("corroboration unavailable")
	ErrStoreUnavailable         = errors.New("store unavailable")

	// ErrRunInProgress is returned synchronously when a second pipeline
	// run is requested while one is running.
	ErrRunInProgress = errors.New("a run is already in progress")

	ErrNotFound = errors.New("not found")
)

// CommandOutOfRangeError reports an item index outside the pending digest.
// It reaches the user as a validation reply and mutates nothing.
type CommandOutOfRangeError struct {
	Index int
	Max   int
}

func (e *CommandOutOfRangeError) Error() string {
	return fmt.Sprintf("item %d is out of range, digest has %d items", e.Index, e.Max)
}
