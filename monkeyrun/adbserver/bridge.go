// Package adbserver implements the device collaborator on top of the adb server socket,
// without spawning an adb process per call.
package adbserver

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	goadb "github.com/zach-klippenstein/goadb"

	"github.com/spance/monkeyrun/constants"
	"github.com/spance/monkeyrun/monkeyrun/definitions"
)

const pollInterval = 500 * time.Millisecond

type Bridge struct {
	client      *goadb.Adb
	WaitTimeout time.Duration
}

// NewBridge connects to the adb server on port, starting it with the adb at adbPath if needed.
func NewBridge(adbPath string, port int, waitTimeout time.Duration) (*Bridge, error) {
	if port == 0 {
		port = constants.DefaultADBPort
	}
	if adbPath == "" {
		adbPath = constants.DefaultADBPath
	}
	// goadb wants the executable's path, not a name to look up.
	resolved, err := exec.LookPath(adbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", definitions.ErrToolUnavailable, err)
	}

	client, err := goadb.NewWithConfig(goadb.ServerConfig{
		PathToAdb: resolved,
		Port:      port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", definitions.ErrToolUnavailable, err)
	}
	if err := client.StartServer(); err != nil {
		return nil, fmt.Errorf("%w: start adb server: %v", definitions.ErrToolUnavailable, err)
	}
	return &Bridge{client: client, WaitTimeout: waitTimeout}, nil
}

// ListDevices returns the server's `host:devices-l` listing under the `adb devices -l` header.
// The listing is passed through as text: goadb's own parser cannot read lines whose state
// has spaces, such as "no permissions (...)".
func (r *Bridge) ListDevices(ctx context.Context) (string, error) {
	conn, err := r.client.Dial()
	if err != nil {
		return "", fmt.Errorf("%w: %v", definitions.ErrToolUnavailable, err)
	}
	defer conn.Close()

	resp, err := conn.RoundTripSingleResponse([]byte("host:devices-l"))
	if err != nil {
		return "", fmt.Errorf("list devices: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(constants.DeviceListHeader)
	sb.WriteString("\n")
	sb.Write(resp)
	sb.WriteString("\n")

	log.Debug().Str("output", sb.String()).Msg("[ListDevices] server device list")
	return sb.String(), nil
}

func (r *Bridge) WaitForConnection(ctx context.Context, serial string) (definitions.Device, error) {
	if r.WaitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.WaitTimeout)
		defer cancel()
	}

	device := r.client.Device(goadb.DeviceWithSerial(serial))
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		state, err := device.State()
		if err == nil && state == goadb.StateOnline {
			log.Debug().Str("serial", serial).Msg("[WaitForConnection] device online")
			return &Device{device: device, Serial: serial}, nil
		}
		log.Debug().Err(err).Str("serial", serial).Str("state", stateName(state)).Msg("[WaitForConnection] not online yet")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s not online after %s: %v", definitions.ErrDeviceNotReady, serial, r.WaitTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

func stateName(state goadb.DeviceState) string {
	switch state {
	case goadb.StateOnline:
		return definitions.StateDevice
	case goadb.StateOffline:
		return "offline"
	case goadb.StateUnauthorized:
		return "unauthorized"
	case goadb.StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
