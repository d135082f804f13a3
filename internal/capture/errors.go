package capture

import "errors"

var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrDeviceBusy        = errors.New("microphone is already capturing")
	ErrDeviceFailure     = errors.New("capture device failed")
	ErrInvalidTransition = errors.New("invalid capture state transition")
)
