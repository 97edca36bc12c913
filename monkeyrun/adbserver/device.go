package adbserver

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	goadb "github.com/zach-klippenstein/goadb"

	"github.com/spance/monkeyrun/monkeyrun/definitions"
)

const remoteTmpDir = "/data/local/tmp"

// Device is a device reached through the adb server.
type Device struct {
	device *goadb.Device
	Serial string
}

func (r *Device) shell(tag, cmd string, args ...string) (string, error) {
	log.Debug().Str("cmd", fmt.Sprintf("[%s] run shell: %s %s", tag, cmd, strings.Join(args, " "))).Str("serial", r.Serial).Msg("")
	output, err := r.device.RunCommand(cmd, args...)
	if err != nil {
		log.Error().Err(err).Msgf("[%s] run shell failed", tag)
		return output, err
	}
	log.Debug().Str("output", output).Msgf("[%s] raw output", tag)
	return output, nil
}

// InstallPackage pushes the APK to the device and installs it with pm.
func (r *Device) InstallPackage(ctx context.Context, localPath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%w: %v", definitions.ErrInstallFailed, err)
	}
	defer src.Close()

	remotePath := path.Join(remoteTmpDir, filepath.Base(localPath))
	if err := r.push(ctx, src, remotePath); err != nil {
		return fmt.Errorf("%w: push %s: %v", definitions.ErrInstallFailed, remotePath, err)
	}
	defer func() {
		if _, err := r.shell("InstallPackage", "rm", "-f", remotePath); err != nil {
			log.Warn().Err(err).Str("path", remotePath).Msg("failed to remove pushed apk")
		}
	}()

	output, err := r.shell("InstallPackage", "pm", "install", "-r", remotePath)
	if err != nil {
		return fmt.Errorf("%w: %v", definitions.ErrInstallFailed, err)
	}
	if !strings.Contains(output, "Success") {
		return fmt.Errorf("%w: %s", definitions.ErrInstallFailed, strings.TrimSpace(output))
	}
	return nil
}

func (r *Device) push(ctx context.Context, src io.Reader, remotePath string) error {
	dst, err := r.device.OpenWrite(remotePath, 0o644, time.Now())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, readerWithContext(ctx, src)); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

func (r *Device) StartActivity(ctx context.Context, component string) error {
	output, err := r.shell("StartActivity", "am", "start", "-n", component)
	if err != nil {
		return fmt.Errorf("%w: %v", definitions.ErrActivityFailed, err)
	}
	if strings.Contains(output, "Error") {
		return fmt.Errorf("%w: %s", definitions.ErrActivityFailed, strings.TrimSpace(output))
	}
	return nil
}

func (r *Device) Press(ctx context.Context, keyCode string, action definitions.KeyAction) error {
	if action != definitions.KeyDownAndUp {
		return fmt.Errorf("%w: %s over adb input", definitions.ErrUnsupportedKeyAction, action)
	}
	_, err := r.shell("Press", "input", "keyevent", keyCode)
	return err
}

func (r *Device) TakeSnapshot(ctx context.Context) (definitions.Image, error) {
	remotePath := fmt.Sprintf("/sdcard/screenshot_%s.png", uuid.New().String())

	output, err := r.shell("TakeSnapshot", "screencap", "-p", remotePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if _, err := r.shell("TakeSnapshot", "rm", "-f", remotePath); err != nil {
			log.Warn().Err(err).Str("path", remotePath).Msg("failed to remove snapshot from device")
		}
	}()
	if strings.Contains(output, "Status: -1") || strings.Contains(output, "Failed") {
		return nil, fmt.Errorf("screencap failed: %s", strings.TrimSpace(output))
	}

	reader, err := r.device.OpenRead(remotePath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(readerWithContext(ctx, reader))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return definitions.NewSnapshot(data)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// readerWithContext stops a transfer between chunks once ctx is done.
func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
