package android

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/spance/monkeyrun/constants"
	"github.com/spance/monkeyrun/monkeyrun/definitions"
)

// ADBBridge drives the adb executable.
type ADBBridge struct {
	Path        string
	WaitTimeout time.Duration
}

func NewADBBridge(path string, waitTimeout time.Duration) *ADBBridge {
	if path == "" {
		path = constants.DefaultADBPath
	}
	return &ADBBridge{Path: path, WaitTimeout: waitTimeout}
}

// run executes adb with args and returns stdout and stderr together. A missing or
// non-executable adb is reported as definitions.ErrToolUnavailable.
func (r *ADBBridge) run(ctx context.Context, tag string, args ...string) ([]byte, error) {
	return r.execute(ctx, tag, true, args...)
}

// output executes adb with args and returns stdout only. Server notices on stderr are logged.
func (r *ADBBridge) output(ctx context.Context, tag string, args ...string) ([]byte, error) {
	return r.execute(ctx, tag, false, args...)
}

func (r *ADBBridge) execute(ctx context.Context, tag string, combined bool, args ...string) ([]byte, error) {
	log.Debug().Str("cmd", fmt.Sprintf("[%s] run cmd: %s %s", tag, r.Path, strings.Join(args, " "))).Msg("")

	cmd := exec.CommandContext(ctx, r.Path, args...)
	var stderr bytes.Buffer
	var output []byte
	var err error
	if combined {
		output, err = cmd.CombinedOutput()
	} else {
		cmd.Stderr = &stderr
		output, err = cmd.Output()
		if stderr.Len() > 0 {
			log.Debug().Str("stderr", stderr.String()).Msgf("[%s] adb stderr", tag)
		}
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			log.Error().Err(err).Msgf("[%s] adb unavailable", tag)
			return nil, fmt.Errorf("%w: %v", definitions.ErrToolUnavailable, err)
		}
		detail := strings.TrimSpace(string(output) + stderr.String())
		log.Error().Err(err).Str("output", detail).Msgf("[%s] run cmd failed", tag)
		return output, fmt.Errorf("adb %s: %w: %s", strings.Join(args, " "), err, detail)
	}

	log.Debug().Str("output", string(output)).Msgf("[%s] raw output", tag)
	return output, nil
}

// CheckAvailable verifies adb can be run and returns its version line.
func (r *ADBBridge) CheckAvailable(ctx context.Context) (string, error) {
	if _, err := exec.LookPath(r.Path); err != nil {
		return "", fmt.Errorf("%w: %v", definitions.ErrToolUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := r.run(ctx, "CheckAvailable", "version")
	if err != nil {
		return "", err
	}
	versionLine, _, _ := strings.Cut(string(output), "\n")
	versionLine = strings.TrimSpace(versionLine)
	if versionLine == "" {
		versionLine = "installed"
	}
	return versionLine, nil
}

// ListDevices returns the standard output of `adb devices -l`. Notices adb prints while
// restarting its server go to stderr and are left out.
func (r *ADBBridge) ListDevices(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	output, err := r.output(ctx, "ListDevices", "devices", "-l")
	if err != nil {
		return "", err
	}
	return string(output), nil
}

func (r *ADBBridge) Connect(ctx context.Context, address string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := r.run(ctx, "Connect", "connect", address)
	if err != nil {
		return fmt.Sprintf("Connect error: %v", err), err
	}

	lowerOutput := strings.ToLower(string(output))
	switch {
	case strings.Contains(lowerOutput, "already connected"):
		return fmt.Sprintf("Already connected to %s", address), nil
	case strings.Contains(lowerOutput, "cannot connect"), strings.Contains(lowerOutput, "failed"):
		msg := strings.TrimSpace(string(output))
		return fmt.Sprintf("Connection error: %s", msg), fmt.Errorf("connect %s: %s", address, msg)
	case strings.Contains(lowerOutput, "connected"):
		return fmt.Sprintf("Connected to %s", address), nil
	}
	msg := strings.TrimSpace(string(output))
	return fmt.Sprintf("Connection error: %s", msg), fmt.Errorf("connect %s: %s", address, msg)
}

// WaitForConnection blocks until serial is online, bounded by WaitTimeout when it is set.
func (r *ADBBridge) WaitForConnection(ctx context.Context, serial string) (definitions.Device, error) {
	waitCtx := ctx
	if r.WaitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.WaitTimeout)
		defer cancel()
	}

	if _, err := r.run(waitCtx, "WaitForConnection", "-s", serial, "wait-for-device"); err != nil {
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s not online after %s", definitions.ErrDeviceNotReady, serial, r.WaitTimeout)
		}
		return nil, err
	}

	output, err := r.run(ctx, "WaitForConnection", "-s", serial, "get-state")
	if err != nil {
		return nil, err
	}
	if state := strings.TrimSpace(string(output)); state != definitions.StateDevice {
		return nil, fmt.Errorf("%w: %s is %q", definitions.ErrDeviceNotReady, serial, state)
	}

	log.Debug().Str("serial", serial).Msg("[WaitForConnection] device online")
	return &ADBDevice{bridge: r, Serial: serial}, nil
}
