package device

import "testing"

func TestDefaultState(t *testing.T) {
	s := DefaultState()

	if s.LampOn || s.PlugOn || s.BuzzerOn || s.Connected {
		t.Errorf("default state should be all off and disconnected: %+v", s)
	}
	if s.Door != DoorClosed {
		t.Errorf("Door = %q, want CLOSED", s.Door)
	}
	if s.Temperature != 0 {
		t.Errorf("Temperature = %v, want 0", s.Temperature)
	}
	if s.AlarmThreshold != 35.0 {
		t.Errorf("AlarmThreshold = %v, want 35.0", s.AlarmThreshold)
	}
}

func TestPartial_Apply(t *testing.T) {
	base := DefaultState()

	got := Partial{
		LampOn:         Ptr(true),
		AlarmThreshold: Ptr(28.5),
	}.WithConnected(true).Apply(base)

	want := base
	want.LampOn = true
	want.AlarmThreshold = 28.5
	want.Connected = true
	if got != want {
		t.Errorf("Apply() = %+v, want %+v", got, want)
	}

	// base is a value; Apply never mutates it.
	if base.LampOn {
		t.Error("Apply mutated its input")
	}
}

func TestPartial_IsEmpty(t *testing.T) {
	if !(Partial{}).IsEmpty() {
		t.Error("zero Partial should be empty")
	}
	if (Partial{}).WithConnected(false).IsEmpty() {
		t.Error("Partial with Connected set should not be empty")
	}
}
