package android

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/spance/monkeyrun/monkeyrun/definitions"
)

// ADBDevice is a connected device addressed through `adb -s <serial>`.
type ADBDevice struct {
	bridge *ADBBridge
	Serial string
}

func (r *ADBDevice) run(ctx context.Context, tag string, args ...string) ([]byte, error) {
	return r.bridge.run(ctx, tag, append([]string{"-s", r.Serial}, args...)...)
}

func (r *ADBDevice) InstallPackage(ctx context.Context, localPath string) error {
	if _, err := os.Stat(localPath); err != nil {
		return fmt.Errorf("%w: %v", definitions.ErrInstallFailed, err)
	}

	output, err := r.run(ctx, "InstallPackage", "install", "-r", localPath)
	if err != nil {
		return fmt.Errorf("%w: %v", definitions.ErrInstallFailed, err)
	}
	// Older adb versions exit 0 and report the failure in the output.
	if !strings.Contains(string(output), "Success") {
		return fmt.Errorf("%w: %s", definitions.ErrInstallFailed, lastLine(output))
	}
	return nil
}

func (r *ADBDevice) StartActivity(ctx context.Context, component string) error {
	output, err := r.run(ctx, "StartActivity", "shell", "am", "start", "-n", component)
	if err != nil {
		return fmt.Errorf("%w: %v", definitions.ErrActivityFailed, err)
	}
	if strings.Contains(string(output), "Error") {
		return fmt.Errorf("%w: %s", definitions.ErrActivityFailed, lastLine(output))
	}
	return nil
}

// Press sends a key event. `input keyevent` always sends down then up, so only
// DOWN_AND_UP is supported.
func (r *ADBDevice) Press(ctx context.Context, keyCode string, action definitions.KeyAction) error {
	if action != definitions.KeyDownAndUp {
		return fmt.Errorf("%w: %s over adb input", definitions.ErrUnsupportedKeyAction, action)
	}
	_, err := r.run(ctx, "Press", "shell", "input", "keyevent", keyCode)
	return err
}

func (r *ADBDevice) TakeSnapshot(ctx context.Context) (definitions.Image, error) {
	name := fmt.Sprintf("screenshot_%s.png", uuid.New().String())
	remotePath := "/sdcard/" + name
	localPath := filepath.Join(os.TempDir(), name)
	defer func() {
		_ = os.Remove(localPath)
	}()

	output, err := r.run(ctx, "TakeSnapshot", "shell", "screencap", "-p", remotePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if _, err := r.run(context.WithoutCancel(ctx), "TakeSnapshot", "shell", "rm", "-f", remotePath); err != nil {
			log.Warn().Err(err).Str("path", remotePath).Msg("failed to remove snapshot from device")
		}
	}()

	outputStr := string(output)
	if strings.Contains(outputStr, "Status: -1") || strings.Contains(outputStr, "Failed") {
		return nil, fmt.Errorf("screencap failed: %s", strings.TrimSpace(outputStr))
	}

	if _, err := r.run(ctx, "TakeSnapshot", "pull", remotePath, localPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	snapshot, err := definitions.NewSnapshot(data)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("width", snapshot.Width).Int("height", snapshot.Height).Msg("[TakeSnapshot] captured")
	return snapshot, nil
}

func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
