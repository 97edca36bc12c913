package definitions

import "context"

// Device is a live connection to one attached device.
type Device interface {
	InstallPackage(ctx context.Context, localPath string) error
	StartActivity(ctx context.Context, component string) error
	Press(ctx context.Context, keyCode string, action KeyAction) error
	TakeSnapshot(ctx context.Context) (Image, error)
}

// Image is a captured snapshot that can be persisted.
type Image interface {
	WriteToFile(path, format string) error
}
