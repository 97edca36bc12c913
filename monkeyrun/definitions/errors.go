package definitions

import "errors"

var (
	// ErrToolUnavailable means the debugging bridge could not be invoked at all.
	ErrToolUnavailable = errors.New("adb is not installed or not runnable")
	// ErrMalformedOutput means the bridge printed something that is not a device list.
	ErrMalformedOutput = errors.New("malformed device list output")

	ErrInvalidSelection     = errors.New("invalid device selection")
	ErrDeviceNotFound       = errors.New("device not found")
	ErrDeviceNotReady       = errors.New("device not ready")
	ErrUnsupportedKeyAction = errors.New("unsupported key action")
	ErrUnsupportedFormat    = errors.New("unsupported image format")
	ErrInstallFailed        = errors.New("install failed")
	ErrActivityFailed       = errors.New("start activity failed")
)
