package definitions

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

type ConnectionType string

const (
	USB      ConnectionType = "usb"
	Emulator ConnectionType = "emulator"
	Remote   ConnectionType = "remote"
)

// StateDevice is the adb state of a device that is attached and authorized.
const StateDevice = "device"

// DeviceDescriptor is one entry of the bridge's device list.
type DeviceDescriptor struct {
	Serial     string            `json:"serial"`
	State      string            `json:"state"`
	Attributes map[string]string `json:"attributes,omitempty"`
	// Line is the entry as the bridge listed it, without the line terminator.
	Line string `json:"line"`
}

// Label returns the serial without the trailing status annotation.
func (d DeviceDescriptor) Label() string {
	return strings.TrimSpace(d.Serial)
}

func (d DeviceDescriptor) Ready() bool {
	return d.State == StateDevice
}

func (d DeviceDescriptor) Model() string {
	return d.Attributes["model"]
}

func (d DeviceDescriptor) ConnectionType() ConnectionType {
	switch {
	case strings.Contains(d.Serial, ":"):
		return Remote
	case strings.HasPrefix(d.Serial, "emulator-"):
		return Emulator
	default:
		return USB
	}
}

type DeviceList []DeviceDescriptor

// Lines returns the entries as listed, in discovery order.
func (l DeviceList) Lines() []string {
	lines := make([]string, 0, len(l))
	for _, d := range l {
		lines = append(lines, d.Line)
	}
	return lines
}

// Snapshot is a full-screen capture as returned by the device, PNG encoded.
type Snapshot struct {
	Data   []byte `json:"-"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// NewSnapshot wraps PNG data and reads its dimensions.
func NewSnapshot(data []byte) (*Snapshot, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &Snapshot{Data: data, Width: cfg.Width, Height: cfg.Height}, nil
}

// WriteToFile persists the snapshot at path in the given format ("png", "jpeg" or "jpg").
func (s *Snapshot) WriteToFile(path, format string) error {
	var data []byte
	switch strings.ToLower(format) {
	case "png":
		data = s.Data
	case "jpeg", "jpg":
		img, err := png.Decode(bytes.NewReader(s.Data))
		if err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return fmt.Errorf("encode jpeg: %w", err)
		}
		data = buf.Bytes()
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
