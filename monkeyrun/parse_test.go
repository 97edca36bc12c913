package monkeyrun

import (
	"errors"
	"testing"

	"github.com/spance/monkeyrun/monkeyrun/definitions"
)

func TestParseDeviceListEmpty(t *testing.T) {
	inputs := []string{
		"List of devices attached\n\n",
		"List of devices attached\n",
		"\nList of devices attached\n\n\n",
		"List of devices attached\r\n\r\n",
		"* daemon not running; starting now at tcp:5037\n* daemon started successfully\nList of devices attached\n\n",
	}
	for _, raw := range inputs {
		devices, err := ParseDeviceList(raw)
		if err != nil {
			t.Errorf("ParseDeviceList(%q) error: %v", raw, err)
			continue
		}
		if len(devices) != 0 {
			t.Errorf("ParseDeviceList(%q) = %v, want empty", raw, devices)
		}
	}
}

func TestParseDeviceListSingle(t *testing.T) {
	devices, err := ParseDeviceList("List of devices attached\nemulator-5554\tdevice\n\n")
	if err != nil {
		t.Fatalf("ParseDeviceList: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("got %d devices, want 1", len(devices))
	}

	d := devices[0]
	if d.Line != "emulator-5554\tdevice" {
		t.Errorf("Line = %q", d.Line)
	}
	if d.Label() != "emulator-5554" {
		t.Errorf("Label = %q, want status annotation removed", d.Label())
	}
	if d.Serial != "emulator-5554" || d.State != "device" {
		t.Errorf("Serial/State = %q/%q", d.Serial, d.State)
	}
	if d.ConnectionType() != definitions.Emulator {
		t.Errorf("ConnectionType = %q", d.ConnectionType())
	}
}

func TestParseDeviceListLongFormat(t *testing.T) {
	raw := "List of devices attached\n" +
		"R58M123ABC             device usb:1-1 product:beyond1ltexx model:SM_G973F device:beyond1 transport_id:3\n" +
		"192.168.1.100:5555     offline transport_id:4\n" +
		"0123456789ABCDEF       unauthorized usb:1-2 transport_id:5\n" +
		"HT4CTJT00001\tno permissions (missing udev rules? user is in the plugdev group); see [http://developer.android.com/tools/device.html]\n\n"

	devices, err := ParseDeviceList(raw)
	if err != nil {
		t.Fatalf("ParseDeviceList: %v", err)
	}

	want := []struct {
		serial, state string
		conn          definitions.ConnectionType
	}{
		{"R58M123ABC", "device", definitions.USB},
		{"192.168.1.100:5555", "offline", definitions.Remote},
		{"0123456789ABCDEF", "unauthorized", definitions.USB},
		{"HT4CTJT00001", "no permissions", definitions.USB},
	}
	if len(devices) != len(want) {
		t.Fatalf("got %d devices, want %d", len(devices), len(want))
	}
	for i, w := range want {
		d := devices[i]
		if d.Serial != w.serial || d.State != w.state || d.ConnectionType() != w.conn {
			t.Errorf("device %d = %q/%q/%q, want %q/%q/%q", i, d.Serial, d.State, d.ConnectionType(), w.serial, w.state, w.conn)
		}
	}
	if devices[0].Model() != "SM_G973F" || devices[0].Attributes["transport_id"] != "3" {
		t.Errorf("attributes = %v", devices[0].Attributes)
	}
	if !devices[0].Ready() || devices[1].Ready() {
		t.Errorf("Ready() mismatch")
	}
}

func TestParseDeviceListMalformed(t *testing.T) {
	inputs := []string{
		"",
		"\n\n",
		"emulator-5554\tdevice\n",
		"adb: command not found\n",
		"List of devices attached\nemulator-5554\n",
		"List of devices attached\nemulator-5554\tdevice garbage\n",
	}
	for _, raw := range inputs {
		if _, err := ParseDeviceList(raw); !errors.Is(err, definitions.ErrMalformedOutput) {
			t.Errorf("ParseDeviceList(%q) error = %v, want ErrMalformedOutput", raw, err)
		}
	}
}
