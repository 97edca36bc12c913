package android

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spance/monkeyrun/monkeyrun/definitions"
)

// fakeADB answers like adb for one online emulator and logs its arguments to $ADB_LOG.
const fakeADB = `#!/bin/sh
echo "$*" >> "$ADB_LOG"
case "$*" in
"version")
	echo "Android Debug Bridge version 1.0.41"
	;;
"devices -l")
	if [ -n "$FAKE_RESTART" ]; then
		echo "adb server version (40) doesn't match this client (41); killing..." >&2
		echo "* daemon started successfully" >&2
	fi
	printf 'List of devices attached\nemulator-5554          device product:sdk_gphone64 model:Pixel_6 transport_id:1\n\n'
	;;
"connect "*)
	echo "connected to $2"
	;;
*"wait-for-device")
	;;
*"get-state")
	echo "${FAKE_STATE:-device}"
	;;
*" install -r "*)
	echo "Performing Streamed Install"
	echo "${FAKE_INSTALL:-Success}"
	;;
*"am start -n "*)
	echo "${FAKE_START:-Starting: Intent}"
	;;
*"input keyevent "*)
	;;
*"screencap -p "*)
	;;
*" pull "*)
	for last; do :; done
	cp "$FAKE_PNG" "$last"
	;;
*"rm -f "*)
	;;
*)
	echo "unexpected: $*" >&2
	exit 1
	;;
esac
`

func setupFakeADB(t *testing.T) (*ADBBridge, func() []string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake adb is a shell script")
	}
	dir := t.TempDir()

	adbPath := filepath.Join(dir, "adb")
	if err := os.WriteFile(adbPath, []byte(fakeADB), 0o755); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 8))); err != nil {
		t.Fatal(err)
	}
	pngPath := filepath.Join(dir, "screen.png")
	if err := os.WriteFile(pngPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	logPath := filepath.Join(dir, "adb.log")
	t.Setenv("ADB_LOG", logPath)
	t.Setenv("FAKE_PNG", pngPath)

	calls := func() []string {
		data, err := os.ReadFile(logPath)
		if err != nil {
			return nil
		}
		return strings.Split(strings.TrimSpace(string(data)), "\n")
	}
	return NewADBBridge(adbPath, 5*time.Second), calls
}

func connect(t *testing.T, bridge *ADBBridge) definitions.Device {
	t.Helper()
	device, err := bridge.WaitForConnection(context.Background(), "emulator-5554")
	if err != nil {
		t.Fatalf("WaitForConnection: %v", err)
	}
	return device
}

func TestListDevices(t *testing.T) {
	bridge, calls := setupFakeADB(t)

	raw, err := bridge.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if !strings.HasPrefix(raw, "List of devices attached\n") || !strings.Contains(raw, "emulator-5554") {
		t.Errorf("unexpected output %q", raw)
	}
	if got := calls(); len(got) != 1 || got[0] != "devices -l" {
		t.Errorf("calls = %v", got)
	}
}

func TestListDevicesIgnoresServerNotices(t *testing.T) {
	bridge, _ := setupFakeADB(t)
	t.Setenv("FAKE_RESTART", "1")

	raw, err := bridge.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if !strings.HasPrefix(raw, "List of devices attached\n") {
		t.Errorf("output does not start with the header: %q", raw)
	}
	if strings.Contains(raw, "doesn't match this client") || strings.Contains(raw, "daemon started") {
		t.Errorf("stderr leaked into output: %q", raw)
	}
}

func TestCheckAvailable(t *testing.T) {
	bridge, _ := setupFakeADB(t)

	version, err := bridge.CheckAvailable(context.Background())
	if err != nil {
		t.Fatalf("CheckAvailable: %v", err)
	}
	if version != "Android Debug Bridge version 1.0.41" {
		t.Errorf("version = %q", version)
	}
}

func TestMissingToolIsUnavailable(t *testing.T) {
	bridge := NewADBBridge(filepath.Join(t.TempDir(), "no-such-adb"), time.Second)

	if _, err := bridge.ListDevices(context.Background()); !errors.Is(err, definitions.ErrToolUnavailable) {
		t.Errorf("ListDevices error = %v, want ErrToolUnavailable", err)
	}
	if _, err := bridge.CheckAvailable(context.Background()); !errors.Is(err, definitions.ErrToolUnavailable) {
		t.Errorf("CheckAvailable error = %v, want ErrToolUnavailable", err)
	}
}

func TestConnect(t *testing.T) {
	bridge, _ := setupFakeADB(t)

	msg, err := bridge.Connect(context.Background(), "192.168.1.100:5555")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if msg != "Connected to 192.168.1.100:5555" {
		t.Errorf("msg = %q", msg)
	}
}

func TestWaitForConnectionNotReady(t *testing.T) {
	bridge, _ := setupFakeADB(t)
	t.Setenv("FAKE_STATE", "unauthorized")

	if _, err := bridge.WaitForConnection(context.Background(), "emulator-5554"); !errors.Is(err, definitions.ErrDeviceNotReady) {
		t.Errorf("err = %v, want ErrDeviceNotReady", err)
	}
}

func TestSequenceCommands(t *testing.T) {
	bridge, calls := setupFakeADB(t)
	ctx := context.Background()
	device := connect(t, bridge)

	apk := filepath.Join(t.TempDir(), "Vnote.apk")
	if err := os.WriteFile(apk, []byte("apk"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := device.InstallPackage(ctx, apk); err != nil {
		t.Fatalf("InstallPackage: %v", err)
	}
	if err := device.StartActivity(ctx, "io.github.lovexiaov.vnote/io.github.lovexiaov.vnote.MainActivity"); err != nil {
		t.Fatalf("StartActivity: %v", err)
	}
	if err := device.Press(ctx, "KEYCODE_MENU", definitions.KeyDownAndUp); err != nil {
		t.Fatalf("Press: %v", err)
	}
	img, err := device.TakeSnapshot(ctx)
	if err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}
	snapshot := img.(*definitions.Snapshot)
	if snapshot.Width != 4 || snapshot.Height != 8 {
		t.Errorf("snapshot size = %dx%d", snapshot.Width, snapshot.Height)
	}

	got := calls()
	want := []string{
		"-s emulator-5554 wait-for-device",
		"-s emulator-5554 get-state",
		"-s emulator-5554 install -r " + apk,
		"-s emulator-5554 shell am start -n io.github.lovexiaov.vnote/io.github.lovexiaov.vnote.MainActivity",
		"-s emulator-5554 shell input keyevent KEYCODE_MENU",
	}
	if len(got) < len(want)+3 {
		t.Fatalf("calls = %v", got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("call %d = %q, want %q", i, got[i], w)
		}
	}
	if !strings.HasPrefix(got[5], "-s emulator-5554 shell screencap -p /sdcard/screenshot_") {
		t.Errorf("screencap call = %q", got[5])
	}
	if !strings.HasPrefix(got[6], "-s emulator-5554 pull /sdcard/screenshot_") {
		t.Errorf("pull call = %q", got[6])
	}
	if !strings.HasPrefix(got[7], "-s emulator-5554 shell rm -f /sdcard/screenshot_") {
		t.Errorf("cleanup call = %q", got[7])
	}
}

func TestInstallFailures(t *testing.T) {
	bridge, _ := setupFakeADB(t)
	ctx := context.Background()
	device := connect(t, bridge)

	if err := device.InstallPackage(ctx, filepath.Join(t.TempDir(), "missing.apk")); !errors.Is(err, definitions.ErrInstallFailed) {
		t.Errorf("missing apk err = %v", err)
	}

	apk := filepath.Join(t.TempDir(), "bad.apk")
	if err := os.WriteFile(apk, []byte("apk"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FAKE_INSTALL", "Failure [INSTALL_FAILED_INVALID_APK]")
	err := device.InstallPackage(ctx, apk)
	if !errors.Is(err, definitions.ErrInstallFailed) || !strings.Contains(err.Error(), "INSTALL_FAILED_INVALID_APK") {
		t.Errorf("bad apk err = %v", err)
	}
}

func TestStartActivityError(t *testing.T) {
	bridge, _ := setupFakeADB(t)
	device := connect(t, bridge)
	t.Setenv("FAKE_START", "Error: Activity class {a.b/a.b.Main} does not exist.")

	if err := device.StartActivity(context.Background(), "a.b/a.b.Main"); !errors.Is(err, definitions.ErrActivityFailed) {
		t.Errorf("err = %v, want ErrActivityFailed", err)
	}
}

func TestPressRejectsSplitActions(t *testing.T) {
	bridge, calls := setupFakeADB(t)
	device := connect(t, bridge)

	for _, action := range []definitions.KeyAction{definitions.KeyDown, definitions.KeyUp} {
		if err := device.Press(context.Background(), "KEYCODE_MENU", action); !errors.Is(err, definitions.ErrUnsupportedKeyAction) {
			t.Errorf("Press(%s) err = %v", action, err)
		}
	}
	for _, c := range calls() {
		if strings.Contains(c, "keyevent") {
			t.Errorf("unexpected key event sent: %q", c)
		}
	}
}
