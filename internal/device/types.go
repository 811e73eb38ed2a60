package device

// DoorStatus is the reported state of the door sensor.
type DoorStatus string

// Door sensor states.
const (
	DoorClosed DoorStatus = "CLOSED"
	DoorOpen   DoorStatus = "OPEN"
)

// DefaultAlarmThreshold is the software alarm trigger used until the user
// picks one, in °C. The firmware ships with its own 27.0 °C threshold,
// reported separately as DeviceThreshold.
const DefaultAlarmThreshold = 35.0

// State is the panel's cached view of the node.
//
// State is a value type: every snapshot handed out by the Store is a
// copy, so holding one never observes later changes.
type State struct {
	LampOn   bool       `json:"lamp_on"`
	PlugOn   bool       `json:"plug_on"`
	BuzzerOn bool       `json:"buzzer_on"`
	Door     DoorStatus `json:"door"`

	// Temperature is the last reported reading in °C.
	Temperature float64 `json:"temperature"`

	// AlarmThreshold is the software alarm trigger in °C. A reading
	// strictly above it means the alarm should be sounding.
	AlarmThreshold float64 `json:"alarm_threshold"`

	// DeviceThreshold is the firmware's own THRESHOLD field. It is never
	// copied into AlarmThreshold.
	DeviceThreshold float64 `json:"device_threshold"`

	// Connected is false after any transport failure and true only after
	// a response has been received and decoded.
	Connected bool `json:"connected"`
}

// DefaultState returns the state before the first successful poll:
// everything off, door closed, 0 °C, disconnected.
func DefaultState() State {
	return State{
		Door:           DoorClosed,
		AlarmThreshold: DefaultAlarmThreshold,
	}
}

// Partial carries the fields to change in a merge. Nil fields are left
// as they are.
type Partial struct {
	LampOn          *bool
	PlugOn          *bool
	BuzzerOn        *bool
	Door            *DoorStatus
	Temperature     *float64
	AlarmThreshold  *float64
	DeviceThreshold *float64
	Connected       *bool
}

// Apply returns s with every non-nil field of p copied in.
func (p Partial) Apply(s State) State {
	if p.LampOn != nil {
		s.LampOn = *p.LampOn
	}
	if p.PlugOn != nil {
		s.PlugOn = *p.PlugOn
	}
	if p.BuzzerOn != nil {
		s.BuzzerOn = *p.BuzzerOn
	}
	if p.Door != nil {
		s.Door = *p.Door
	}
	if p.Temperature != nil {
		s.Temperature = *p.Temperature
	}
	if p.AlarmThreshold != nil {
		s.AlarmThreshold = *p.AlarmThreshold
	}
	if p.DeviceThreshold != nil {
		s.DeviceThreshold = *p.DeviceThreshold
	}
	if p.Connected != nil {
		s.Connected = *p.Connected
	}
	return s
}

// IsEmpty reports whether p would change nothing.
func (p Partial) IsEmpty() bool {
	return p == Partial{}
}

// WithConnected returns a copy of p that also sets Connected.
func (p Partial) WithConnected(v bool) Partial {
	p.Connected = &v
	return p
}

// Ptr returns a pointer to v, for building a Partial literal.
func Ptr[T any](v T) *T {
	return &v
}
