package constants

import "time"

// Backends for the device automation collaborator.
const (
	BackendExec   = "exec"
	BackendServer = "server"
)

const (
	DefaultApkPath     = "/Users/lovexiaov/Documents/AndroidProject/VNote/app/Vnote.apk"
	DefaultPackage     = "io.github.lovexiaov.vnote"
	DefaultActivity    = "io.github.lovexiaov.vnote.MainActivity"
	DefaultOutputPath  = "shot1.png"
	DefaultImageFormat = "png"
	DefaultKeyCode     = "KEYCODE_MENU"

	DefaultWaitTimeout = 60 * time.Second
	DefaultADBPath     = "adb"
	DefaultADBPort     = 5037
)

// DeviceListHeader is the first line of `adb devices` output.
const DeviceListHeader = "List of devices attached"
