package monkeyrun

import (
	"context"
	"fmt"
	"time"

	"github.com/spance/monkeyrun/constants"
	"github.com/spance/monkeyrun/monkeyrun/adbserver"
	"github.com/spance/monkeyrun/monkeyrun/android"
	"github.com/spance/monkeyrun/monkeyrun/definitions"
)

type Device = definitions.Device

// Bridge enumerates attached devices and hands out connections to them.
type Bridge interface {
	// ListDevices returns the raw text of the bridge's device listing.
	ListDevices(ctx context.Context) (string, error)
	WaitForConnection(ctx context.Context, serial string) (Device, error)
}

// Connector is implemented by bridges that can attach remote devices.
type Connector interface {
	Connect(ctx context.Context, address string) (string, error)
}

// Prompter talks to the operator.
type Prompter interface {
	Alert(message string) error
	// Choice returns the index of the chosen option, or -1 if the operator cancelled.
	Choice(message string, options []string) (int, error)
}

// Recorder opens an interaction recording session on a device. Operations made through
// the returned device are recorded.
type Recorder interface {
	Start(ctx context.Context, serial string, device Device) (Device, error)
}

type BridgeOptions struct {
	ADBPath     string
	ADBPort     int
	WaitTimeout time.Duration
}

func CreateBridge(backend string, opts BridgeOptions) (Bridge, error) {
	switch backend {
	case constants.BackendExec:
		return android.NewADBBridge(opts.ADBPath, opts.WaitTimeout), nil
	case constants.BackendServer:
		bridge, err := adbserver.NewBridge(opts.ADBPath, opts.ADBPort, opts.WaitTimeout)
		if err != nil {
			return nil, err
		}
		return bridge, nil
	default:
		return nil, fmt.Errorf("unknown backend: %v", backend)
	}
}
