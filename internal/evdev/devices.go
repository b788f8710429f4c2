package evdev

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const procDevices = "/proc/bus/input/devices"

// evRep is the EV_REP capability bit; keyboards autorepeat, power buttons
// and lid switches do not.
const evRep = 0x14

// Device is one /dev/input event node worth reading.
type Device struct {
	Path    string
	Name    string
	Pointer bool
}

// Discover lists keyboards and pointers from /proc/bus/input/devices.
func Discover() ([]Device, error) {
	f, err := os.Open(procDevices)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", procDevices, err)
	}
	defer f.Close()
	return parseDevices(f)
}

// parseDevices reads the blank-line separated blocks of the proc listing.
func parseDevices(r io.Reader) ([]Device, error) {
	var (
		devices  []Device
		name     string
		node     string
		keyboard bool
		pointer  bool
		repeat   bool
	)
	flush := func() {
		if node != "" && ((keyboard && repeat) || pointer) {
			devices = append(devices, Device{Path: "/dev/input/" + node, Name: name, Pointer: pointer && !keyboard})
		}
		name, node, keyboard, pointer, repeat = "", "", false, false, false
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "N: Name="):
			name = strings.Trim(strings.TrimPrefix(line, "N: Name="), `"`)
		case strings.HasPrefix(line, "H: Handlers="):
			for _, handler := range strings.Fields(strings.TrimPrefix(line, "H: Handlers=")) {
				switch {
				case handler == "kbd":
					keyboard = true
				case strings.HasPrefix(handler, "mouse"):
					pointer = true
				case strings.HasPrefix(handler, "event"):
					node = handler
				}
			}
		case strings.HasPrefix(line, "B: EV="):
			bits, err := strconv.ParseUint(strings.TrimPrefix(line, "B: EV="), 16, 64)
			if err == nil {
				repeat = bits&(1<<evRep) != 0
			}
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input device list: %w", err)
	}
	return devices, nil
}

// Explicit wraps configured device paths.
func Explicit(paths []string) []Device {
	devices := make([]Device, 0, len(paths))
	for _, path := range paths {
		devices = append(devices, Device{Path: path, Name: path})
	}
	return devices
}
