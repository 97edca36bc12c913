package definitions

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spance/monkeyrun/constants"
)

type KeyAction string

const (
	KeyDown      KeyAction = "DOWN"
	KeyUp        KeyAction = "UP"
	KeyDownAndUp KeyAction = "DOWN_AND_UP"
)

func (a KeyAction) Valid() bool {
	switch a {
	case KeyDown, KeyUp, KeyDownAndUp:
		return true
	}
	return false
}

type SessionConfig struct {
	ApkPath     string        `json:"apk_path"`
	Package     string        `json:"package"`
	Activity    string        `json:"activity"`
	OutputPath  string        `json:"output_path"`
	ImageFormat string        `json:"image_format"`
	KeyCode     string        `json:"key_code"`
	KeyAction   KeyAction     `json:"key_action"`
	WaitTimeout time.Duration `json:"wait_timeout"`

	// DeviceID skips the operator prompt when set.
	DeviceID  string `json:"device_id,omitempty"`
	ReadyOnly bool   `json:"ready_only"`
}

// DefaultSessionConfig returns the configuration of the stock VNote smoke test.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		ApkPath:     constants.DefaultApkPath,
		Package:     constants.DefaultPackage,
		Activity:    constants.DefaultActivity,
		OutputPath:  constants.DefaultOutputPath,
		ImageFormat: constants.DefaultImageFormat,
		KeyCode:     constants.DefaultKeyCode,
		KeyAction:   KeyDownAndUp,
		WaitTimeout: constants.DefaultWaitTimeout,
	}
}

// Component returns the "package/activity" string used to start the activity.
func (c *SessionConfig) Component() string {
	return c.Package + "/" + c.Activity
}

func (c *SessionConfig) Validate() error {
	var errs []error
	if c.ApkPath == "" {
		errs = append(errs, errors.New("apk path is required"))
	}
	if c.Package == "" {
		errs = append(errs, errors.New("package is required"))
	}
	if c.Activity == "" {
		errs = append(errs, errors.New("activity is required"))
	}
	if strings.Contains(c.Package, "/") {
		errs = append(errs, fmt.Errorf("invalid package %q", c.Package))
	}
	if c.OutputPath == "" {
		errs = append(errs, errors.New("output path is required"))
	}
	switch strings.ToLower(c.ImageFormat) {
	case "png", "jpeg", "jpg":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnsupportedFormat, c.ImageFormat))
	}
	if c.KeyCode == "" {
		errs = append(errs, errors.New("key code is required"))
	}
	if !c.KeyAction.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnsupportedKeyAction, c.KeyAction))
	}
	if c.WaitTimeout < 0 {
		errs = append(errs, fmt.Errorf("invalid wait timeout %s", c.WaitTimeout))
	}
	return errors.Join(errs...)
}
