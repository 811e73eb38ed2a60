package device

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Status line keys.
const (
	keyTemp      = "TEMP"
	keyDoor      = "DOOR"
	keyLamp      = "LAMP"
	keyPlug      = "PLUG"
	keyAlarm     = "ALARM"
	keyThreshold = "THRESHOLD"
)

// DecodeWarning describes one status segment that could not be used.
// The rest of the line still decodes.
type DecodeWarning struct {
	Key   string
	Value string
	Err   error
}

func (w DecodeWarning) Error() string {
	return fmt.Sprintf("device: status field %s=%q: %v", w.Key, w.Value, w.Err)
}

func (w DecodeWarning) Unwrap() []error {
	return []error{ErrMalformedField, w.Err}
}

// DecodeStatus parses a status line such as
//
//	TEMP:24.50,DOOR:CLOSED,LAMP:ON,PLUG:OFF,ALARM:SAFE,THRESHOLD:27.0
//
// Segments may come in any order and any subset. Unknown keys are
// ignored. Text fields compare exactly (DOOR:OPEN, LAMP:ON, PLUG:ON,
// ALARM:ALARM); anything else, including an empty value, means
// closed / off. A numeric field that does not parse to a finite number is
// left out of the result and reported as a warning.
//
// THRESHOLD is the firmware's threshold and lands in DeviceThreshold.
func DecodeStatus(line string) (Partial, []DecodeWarning) {
	var (
		p        Partial
		warnings []DecodeWarning
	)

	for _, segment := range strings.Split(strings.TrimSpace(line), ",") {
		if strings.TrimSpace(segment) == "" {
			continue
		}

		key, value, _ := strings.Cut(segment, ":")
		key = strings.TrimSpace(key)

		// Boolean tokens must match exactly; only numbers tolerate padding.
		switch key {
		case keyTemp, keyThreshold:
			value = strings.TrimSpace(value)
			f, err := parseFinite(value)
			if err != nil {
				warnings = append(warnings, DecodeWarning{Key: key, Value: value, Err: err})
				continue
			}
			if key == keyTemp {
				p.Temperature = &f
			} else {
				p.DeviceThreshold = &f
			}
		case keyDoor:
			door := DoorClosed
			if value == string(DoorOpen) {
				door = DoorOpen
			}
			p.Door = &door
		case keyLamp:
			p.LampOn = Ptr(value == "ON")
		case keyPlug:
			p.PlugOn = Ptr(value == "ON")
		case keyAlarm:
			p.BuzzerOn = Ptr(value == "ALARM")
		}
	}

	return p, warnings
}

func parseFinite(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return f, nil
}
