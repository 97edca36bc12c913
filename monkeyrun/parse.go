package monkeyrun

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spance/monkeyrun/constants"
	"github.com/spance/monkeyrun/monkeyrun/definitions"
)

const stateNoPermissions = "no permissions"

// ParseDeviceList parses the output of `adb devices` (with or without -l).
//
// The expected format is a header line followed by one line per device:
//
//	List of devices attached
//	<serial>\t<state>[ <key>:<value>...]
//
// Blank lines and daemon notices ("* daemon started successfully") are skipped. Anything
// else that does not fit the format is reported as ErrMalformedOutput.
func ParseDeviceList(raw string) (definitions.DeviceList, error) {
	devices := definitions.DeviceList{}
	headerSeen := false
	lineNo := 0

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "* ") {
			continue
		}

		if !headerSeen {
			if strings.TrimSpace(line) != constants.DeviceListHeader {
				return nil, fmt.Errorf("%w: line %d: expected %q, got %q",
					definitions.ErrMalformedOutput, lineNo, constants.DeviceListHeader, line)
			}
			headerSeen = true
			continue
		}

		device, err := parseDeviceLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", definitions.ErrMalformedOutput, lineNo, err)
		}
		devices = append(devices, device)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read device list: %w", err)
	}

	if !headerSeen {
		return nil, fmt.Errorf("%w: missing %q header", definitions.ErrMalformedOutput, constants.DeviceListHeader)
	}
	return devices, nil
}

func parseDeviceLine(line string) (definitions.DeviceDescriptor, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return definitions.DeviceDescriptor{}, fmt.Errorf("expected \"<serial>\\t<state>\", got %q", line)
	}

	device := definitions.DeviceDescriptor{
		Serial: strings.TrimSpace(fields[0]),
		Line:   line,
	}

	// adb prints a free-form explanation after this state, e.g. a missing udev rules hint.
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
	if strings.HasPrefix(rest, stateNoPermissions) {
		device.State = stateNoPermissions
		return device, nil
	}

	device.State = fields[1]
	for _, attr := range fields[2:] {
		key, value, ok := strings.Cut(attr, ":")
		if !ok || key == "" {
			return definitions.DeviceDescriptor{}, fmt.Errorf("unexpected device attribute %q", attr)
		}
		if device.Attributes == nil {
			device.Attributes = make(map[string]string)
		}
		device.Attributes[key] = value
	}
	return device, nil
}
