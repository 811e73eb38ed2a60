package device

import "strconv"

// Command is an intent the device understands. The set of variants is
// closed: each one implements the unexported path method, so adding a
// variant means giving it a wire path.
type Command interface {
	path() string
}

// SetLamp switches the lamp relay.
type SetLamp struct{ On bool }

// ToggleLamp flips the lamp relay on the device side.
type ToggleLamp struct{}

// SetPlug switches the plug relay.
type SetPlug struct{ On bool }

// SetThreshold changes the firmware's own alarm threshold.
type SetThreshold struct{ Celsius float64 }

// SetAlarm forces the buzzer on or releases it.
type SetAlarm struct{ On bool }

// RequestStatus asks for the status line without changing anything.
type RequestStatus struct{}

func (c SetLamp) path() string { return onOff("LAMP", c.On) }

func (ToggleLamp) path() string { return "LAMP_TOGGLE" }

func (c SetPlug) path() string { return onOff("PLUG", c.On) }

func (c SetThreshold) path() string {
	return "SET_THRESHOLD:" + strconv.FormatFloat(c.Celsius, 'f', 1, 64)
}

func (c SetAlarm) path() string { return onOff("ALARM", c.On) }

func (RequestStatus) path() string { return "STATUS" }

func onOff(prefix string, on bool) string {
	if on {
		return prefix + "_ON"
	}
	return prefix + "_OFF"
}

// EncodeCommand returns the request path token for cmd, without the
// leading slash, e.g. "LAMP_ON" or "SET_THRESHOLD:30.0".
func EncodeCommand(cmd Command) string {
	return cmd.path()
}
