package capture

import (
	"errors"
	"fmt"
)

// GenericFailureMessage is the only failure text that reaches API callers.
const GenericFailureMessage = "failed to capture screenshot, please try again later"

var (
	// ErrCaptureFailed matches every *Error via errors.Is.
	ErrCaptureFailed = errors.New("capture failed")

	// ErrNavigationTimeout marks navigations that did not go idle in time.
	ErrNavigationTimeout = errors.New("navigation timed out")

	// ErrNotPNG is returned when the driver hands back something other than a PNG.
	ErrNotPNG = errors.New("screenshot is not a png image")
)

// Stage names a step of the capture lifecycle. Stages double as progress
// events for observers.
type Stage string

const (
	StageLaunch    Stage = "launching"
	StageConfigure Stage = "configuring"
	StageNavigate  Stage = "navigating"
	StageScroll    Stage = "scrolling"
	StageWait      Stage = "waiting"
	StageCapture   Stage = "capturing"
	StageDone      Stage = "done"
)

// Error is a capture failure at a given stage.
type Error struct {
	Stage Stage
	URL   string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("capture %s: %s: %v", e.URL, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes every capture error match ErrCaptureFailed.
func (e *Error) Is(target error) bool { return target == ErrCaptureFailed }
