package monkeyrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/spance/monkeyrun/constants"
	"github.com/spance/monkeyrun/monkeyrun/definitions"
	"github.com/spance/monkeyrun/monkeyrun/recorder"
	"github.com/spance/monkeyrun/utils"
)

// Launcher discovers devices, lets the operator pick one and runs the test sequence on it.
type Launcher struct {
	Bridge   Bridge
	Prompter Prompter
	Recorder Recorder
	Config   *definitions.SessionConfig

	// Out receives the resolved serial.
	Out io.Writer
	Now func() time.Time
}

func NewLauncher(bridge Bridge, prompter Prompter, rec Recorder, config *definitions.SessionConfig) *Launcher {
	if rec == nil {
		rec = recorder.New(nil)
	}
	if config == nil {
		config = definitions.DefaultSessionConfig()
	}
	return &Launcher{
		Bridge:   bridge,
		Prompter: prompter,
		Recorder: rec,
		Config:   config,
		Out:      os.Stdout,
		Now:      time.Now,
	}
}

// Run executes discovery, selection and the test sequence. The error is non-nil only
// when the outcome is Failed.
func (r *Launcher) Run(ctx context.Context) (definitions.Outcome, error) {
	devices, err := r.Discover(ctx)
	if err != nil {
		return definitions.Failed, err
	}

	serial, outcome, err := r.Select(ctx, devices)
	if err != nil {
		return definitions.Failed, err
	}
	if serial == "" {
		return outcome, nil
	}

	if err := r.RunSequence(ctx, serial); err != nil {
		return definitions.Failed, err
	}
	return definitions.Completed, nil
}

// Discover lists the devices attached to the bridge.
func (r *Launcher) Discover(ctx context.Context) (definitions.DeviceList, error) {
	raw, err := r.Bridge.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	devices, err := ParseDeviceList(raw)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("count", len(devices)).Str("devices", utils.JsonString(devices)).Msg("[Discover] parsed device list")

	if r.Config.ReadyOnly {
		devices = lo.Filter(devices, func(d definitions.DeviceDescriptor, _ int) bool {
			return d.Ready()
		})
	}
	return devices, nil
}

// Select resolves the serial of the device to test. An empty serial with a nil error means
// the run ended here, and the outcome says why (NoDevice or Cancelled).
func (r *Launcher) Select(ctx context.Context, devices definitions.DeviceList) (string, definitions.Outcome, error) {
	if len(devices) == 0 {
		log.Info().Msg("No devices connected.")
		if err := r.Prompter.Alert(constants.MsgNoDevice); err != nil {
			return "", definitions.Failed, fmt.Errorf("alert: %w", err)
		}
		return "", definitions.NoDevice, nil
	}

	var device definitions.DeviceDescriptor
	if r.Config.DeviceID != "" {
		found, ok := lo.Find(devices, func(d definitions.DeviceDescriptor) bool {
			return d.Label() == r.Config.DeviceID
		})
		if !ok {
			return "", definitions.Failed, fmt.Errorf("%w: %s", definitions.ErrDeviceNotFound, r.Config.DeviceID)
		}
		device = found
	} else {
		index, err := r.Prompter.Choice(constants.MsgChoose, devices.Lines())
		if err != nil {
			return "", definitions.Failed, fmt.Errorf("choice: %w", err)
		}
		if index == -1 {
			log.Info().Msg("Device selection cancelled.")
			if err := r.Prompter.Alert(constants.MsgCancelled); err != nil {
				return "", definitions.Failed, fmt.Errorf("alert: %w", err)
			}
			return "", definitions.Cancelled, nil
		}
		if index < 0 || index >= len(devices) {
			return "", definitions.Failed, fmt.Errorf("%w: index %d of %d", definitions.ErrInvalidSelection, index, len(devices))
		}
		device = devices[index]
	}

	serial := strings.TrimSpace(device.Serial)
	if serial == "" {
		return "", definitions.Failed, fmt.Errorf("%w: empty serial in %q", definitions.ErrInvalidSelection, device.Line)
	}
	if !device.Ready() {
		log.Warn().Str("serial", serial).Str("state", device.State).Msg("selected device is not ready, waiting for it")
	}

	fmt.Fprintln(r.Out, serial)
	return serial, definitions.Completed, nil
}

// RunSequence runs the fixed test sequence against serial. The first failing step aborts
// the rest; completed steps are not undone.
func (r *Launcher) RunSequence(ctx context.Context, serial string) error {
	cfg := r.Config

	log.Info().Str("serial", serial).Msg("Waiting for device connection...")
	device, err := r.Bridge.WaitForConnection(ctx, serial)
	if err != nil {
		return fmt.Errorf("wait for connection: %w", err)
	}

	device, err = r.Recorder.Start(ctx, serial, device)
	if err != nil {
		return fmt.Errorf("start recording: %w", err)
	}

	log.Info().Str("apk", cfg.ApkPath).Msg("Installing package...")
	if err := device.InstallPackage(ctx, cfg.ApkPath); err != nil {
		return fmt.Errorf("install package: %w", err)
	}

	component := cfg.Component()
	log.Info().Str("component", component).Msg("Starting activity...")
	if err := device.StartActivity(ctx, component); err != nil {
		return fmt.Errorf("start activity: %w", err)
	}

	log.Info().Str("key", cfg.KeyCode).Str("action", string(cfg.KeyAction)).Msg("Pressing key...")
	if err := device.Press(ctx, cfg.KeyCode, cfg.KeyAction); err != nil {
		return fmt.Errorf("press key: %w", err)
	}

	snapshot, err := device.TakeSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("take snapshot: %w", err)
	}
	if snapshot == nil {
		return errors.New("take snapshot: device returned no image")
	}

	output := utils.RenderOutputPath(cfg.OutputPath, serial, cfg.Package, r.Now())
	if err := snapshot.WriteToFile(output, cfg.ImageFormat); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	log.Info().Str("path", output).Msg("✅ Snapshot saved")
	return nil
}
