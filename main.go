package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/spance/monkeyrun/constants"
	"github.com/spance/monkeyrun/monkeyrun"
	"github.com/spance/monkeyrun/monkeyrun/definitions"
	"github.com/spance/monkeyrun/monkeyrun/prompt"
	"github.com/spance/monkeyrun/monkeyrun/recorder"
	"github.com/spance/monkeyrun/utils"
)

// Config holds the command line options that are not part of the session itself.
type Config struct {
	Backend     string `json:"backend"`
	ADBPath     string `json:"adb_path"`
	ADBPort     int    `json:"adb_port"`
	Connect     string `json:"connect"`
	ListDevices bool   `json:"list_devices"`
	Record      string `json:"record"`
	KeyAction   string `json:"key_action"`
	Debug       bool   `json:"debug"`

	Session *definitions.SessionConfig `json:"session"`
}

var config = &Config{Session: definitions.DefaultSessionConfig()}

var rootCmd = &cobra.Command{
	Use:   "monkeyrun",
	Short: "Install an app on a connected Android device, launch it and take a snapshot",
	Long: `monkeyrun lists the devices attached to adb, asks which one to use, then installs
the APK, starts the activity, sends a key event and saves a screenshot.`,
	Example: `  # Run the default VNote smoke test
  monkeyrun

  # Skip the prompt and use a specific device
  monkeyrun --device-id emulator-5554

  # Another app, one screenshot per device
  monkeyrun --apk app-debug.apk --package com.example.app --activity com.example.app.MainActivity \
    --output "shots/{serial}-{timestamp}.png"

  # Connect to a remote device first
  monkeyrun --connect 192.168.1.100:5555

  # Talk to the adb server directly instead of running adb
  monkeyrun --backend server

  # List connected devices
  monkeyrun --list-devices`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: validateArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

// Helper function to get environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func init() {
	session := config.Session
	flags := rootCmd.PersistentFlags()

	// Session options
	flags.StringVar(&session.ApkPath, "apk",
		getEnv("MONKEYRUN_APK", session.ApkPath),
		"Local path of the APK to install")

	flags.StringVar(&session.Package, "package",
		getEnv("MONKEYRUN_PACKAGE", session.Package),
		"Package name of the app")

	flags.StringVar(&session.Activity, "activity",
		getEnv("MONKEYRUN_ACTIVITY", session.Activity),
		"Activity to start, fully qualified")

	flags.StringVarP(&session.OutputPath, "output", "o",
		getEnv("MONKEYRUN_OUTPUT", session.OutputPath),
		"Snapshot file; {serial}, {package} and {timestamp} are expanded")

	flags.StringVar(&session.ImageFormat, "format",
		getEnv("MONKEYRUN_FORMAT", session.ImageFormat),
		"Snapshot format: png or jpeg")

	flags.StringVar(&session.KeyCode, "keycode",
		getEnv("MONKEYRUN_KEYCODE", session.KeyCode),
		"Key event to send after the activity starts")

	flags.StringVar(&config.KeyAction, "key-action",
		getEnv("MONKEYRUN_KEY_ACTION", string(session.KeyAction)),
		"Key action: DOWN_AND_UP, DOWN or UP")

	flags.DurationVar(&session.WaitTimeout, "wait-timeout",
		getEnvDuration("MONKEYRUN_WAIT_TIMEOUT", session.WaitTimeout),
		"How long to wait for the device to come online (0 waits forever)")

	// Device options
	flags.StringVarP(&session.DeviceID, "device-id", "d",
		getEnv("MONKEYRUN_DEVICE_ID", ""),
		"Use this device instead of asking")

	flags.BoolVar(&session.ReadyOnly, "ready-only",
		getEnvBool("MONKEYRUN_READY_ONLY", false),
		"Only offer devices in the 'device' state")

	flags.StringVarP(&config.Connect, "connect", "c", "",
		"Connect to remote device first (e.g., 192.168.1.100:5555)")

	flags.BoolVar(&config.ListDevices, "list-devices", false,
		"List connected devices and exit")

	// Bridge options
	flags.StringVar(&config.Backend, "backend",
		getEnv("MONKEYRUN_BACKEND", constants.BackendExec),
		"Device backend: exec runs adb, server talks to the adb server")

	flags.StringVar(&config.ADBPath, "adb-path",
		getEnv("MONKEYRUN_ADB_PATH", constants.DefaultADBPath),
		"adb executable")

	flags.IntVar(&config.ADBPort, "adb-port",
		getEnvInt("MONKEYRUN_ADB_PORT", constants.DefaultADBPort),
		"adb server port (server backend)")

	// Other options
	flags.StringVar(&config.Record, "record",
		getEnv("MONKEYRUN_RECORD", ""),
		"Append recorded device actions to this file as JSON lines")

	flags.BoolVar(&config.Debug, "debug", false,
		"Enable debug mode (default: false)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("❌ monkeyrun failed")
		os.Exit(1)
	}
}

func validateArgs(cmd *cobra.Command, args []string) error {
	configureLogging()

	switch config.Backend {
	case constants.BackendExec, constants.BackendServer:
	default:
		return fmt.Errorf("invalid backend: %s. Must be '%s' or '%s'", config.Backend, constants.BackendExec, constants.BackendServer)
	}
	if config.Connect != "" && config.Backend != constants.BackendExec {
		return fmt.Errorf("--connect requires the '%s' backend", constants.BackendExec)
	}

	config.Session.KeyAction = definitions.KeyAction(strings.ToUpper(config.KeyAction))
	return config.Session.Validate()
}

func configureLogging() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if config.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func run(ctx context.Context) error {
	log.Debug().Msgf("Configuration: %s", utils.JsonIndent(config))

	bridge, err := monkeyrun.CreateBridge(config.Backend, monkeyrun.BridgeOptions{
		ADBPath:     config.ADBPath,
		ADBPort:     config.ADBPort,
		WaitTimeout: config.Session.WaitTimeout,
	})
	if err != nil {
		return explain(err)
	}

	if !checkSystemRequirements(ctx, bridge) {
		return definitions.ErrToolUnavailable
	}

	if config.Connect != "" {
		if err := connect(ctx, bridge, config.Connect); err != nil {
			return err
		}
	}

	if config.ListDevices {
		return listDevices(ctx, bridge)
	}

	rec, closeRecorder, err := openRecorder(config.Record)
	if err != nil {
		return err
	}
	defer closeRecorder()

	launcher := monkeyrun.NewLauncher(bridge, prompt.Stdio(), rec, config.Session)
	outcome, err := launcher.Run(ctx)
	if err != nil {
		return explain(err)
	}
	log.Info().Str("outcome", outcome.String()).Msg("Done")
	return nil
}

type availabilityChecker interface {
	CheckAvailable(ctx context.Context) (string, error)
}

func checkSystemRequirements(ctx context.Context, bridge monkeyrun.Bridge) bool {
	checker, ok := bridge.(availabilityChecker)
	if !ok {
		return true
	}

	log.Debug().Msg("🔍 Checking ADB installation...")
	version, err := checker.CheckAvailable(ctx)
	if err != nil {
		log.Error().Err(err).Msg("❌ FAILED")
		printInstallHelp()
		return false
	}
	log.Debug().Msgf("✅ OK (%s)", version)
	return true
}

func printInstallHelp() {
	log.Info().Msg("   Error: ADB is not installed or not in PATH.")
	log.Info().Msg("   Solution: Install ADB:")
	log.Info().Msg("     - macOS: brew install android-platform-tools")
	log.Info().Msg("     - Linux: sudo apt install android-tools-adb")
	log.Info().Msg("     - Windows: Download from https://developer.android.com/studio/releases/platform-tools")
	log.Info().Msg("   Or point --adb-path at the adb executable.")
}

func explain(err error) error {
	switch {
	case errors.Is(err, definitions.ErrToolUnavailable):
		printInstallHelp()
	case errors.Is(err, definitions.ErrDeviceNotReady):
		log.Info().Msg("   Solution:")
		log.Info().Msg("     1. Enable USB debugging on your Android device")
		log.Info().Msg("     2. Connect via USB and authorize the connection")
		log.Info().Msg("     3. Or raise --wait-timeout")
	}
	return err
}

func connect(ctx context.Context, bridge monkeyrun.Bridge, address string) error {
	connector, ok := bridge.(monkeyrun.Connector)
	if !ok {
		return fmt.Errorf("backend %s cannot connect remote devices", config.Backend)
	}

	log.Info().Msgf("Connecting to %s...", address)
	message, err := connector.Connect(ctx, address)
	if err != nil {
		log.Error().Str("msg", message).Msg("❌")
		return err
	}
	log.Info().Str("msg", message).Msg("✅")
	return nil
}

func listDevices(ctx context.Context, bridge monkeyrun.Bridge) error {
	raw, err := bridge.ListDevices(ctx)
	if err != nil {
		return explain(err)
	}
	devices, err := monkeyrun.ParseDeviceList(raw)
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		log.Info().Msg("No devices connected.")
		return nil
	}

	log.Info().Msg("Connected devices:")
	log.Info().Msg(strings.Repeat("-", 60))
	for _, d := range devices {
		statusIcon := "✅"
		if !d.Ready() {
			statusIcon = "❌"
		}
		modelInfo := ""
		if d.Model() != "" {
			modelInfo = fmt.Sprintf(" (%s)", d.Model())
		}
		log.Info().Str("device", fmt.Sprintf("  %s %-30s [%s] %s%s", statusIcon, d.Label(), d.ConnectionType(), d.State, modelInfo)).Msg("")
	}
	return nil
}

func openRecorder(path string) (*recorder.Recorder, func(), error) {
	if path == "" {
		return recorder.New(nil), func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open record file: %w", err)
	}
	closeFn := func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to close record file")
		}
	}
	return recorder.New(f), closeFn, nil
}
