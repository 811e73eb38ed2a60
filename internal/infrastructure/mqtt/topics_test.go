package mqtt

import "testing"

func TestTopics(t *testing.T) {
	topics := Topics{Node: "hall"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Status", topics.Status(), "homepanel/hall/status"},
		{"State", topics.State(), "homepanel/hall/state"},
		{"Activity", topics.Activity(), "homepanel/hall/activity"},
		{"Command", topics.Command(CommandLamp), "homepanel/hall/command/lamp"},
		{"AllCommands", topics.AllCommands(), "homepanel/hall/command/+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestTopics_ParseCommand(t *testing.T) {
	topics := Topics{Node: "hall"}

	tests := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{"homepanel/hall/command/lamp", "lamp", true},
		{"homepanel/hall/command/threshold", "threshold", true},
		{"homepanel/kitchen/command/lamp", "", false},
		{"homepanel/hall/command/", "", false},
		{"homepanel/hall/command/lamp/extra", "", false},
		{"homepanel/hall/state", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, ok := topics.ParseCommand(tt.topic)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseCommand(%q) = (%q, %v), want (%q, %v)", tt.topic, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
