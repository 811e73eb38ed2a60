package mqttstate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/homepanel-core/internal/advisor"
	"github.com/nerrad567/homepanel-core/internal/device"
)

// StateMessage is the payload published on the state topic.
type StateMessage struct {
	device.State
	AlarmActive bool  `json:"alarm_active"`
	Timestamp   int64 `json:"timestamp"`
}

func newStateMessage(s device.State, now time.Time) StateMessage {
	return StateMessage{
		State:       s,
		AlarmActive: advisor.IsAlarmActive(s),
		Timestamp:   now.UnixMilli(),
	}
}

// parseSwitch accepts ON/OFF, true/false, 1/0 (any case) or {"on": bool}.
func parseSwitch(payload []byte) (bool, error) {
	text := strings.TrimSpace(string(payload))
	if strings.HasPrefix(text, "{") {
		var body struct {
			On *bool `json:"on"`
		}
		if err := json.Unmarshal([]byte(text), &body); err != nil {
			return false, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		if body.On == nil {
			return false, fmt.Errorf("%w: missing \"on\"", ErrInvalidPayload)
		}
		return *body.On, nil
	}

	switch strings.ToUpper(text) {
	case "ON", "TRUE", "1":
		return true, nil
	case "OFF", "FALSE", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a switch value", ErrInvalidPayload, text)
}

// parseCelsius accepts a bare number or {"celsius": n}.
func parseCelsius(payload []byte) (float64, error) {
	text := strings.TrimSpace(string(payload))
	if strings.HasPrefix(text, "{") {
		var body struct {
			Celsius *float64 `json:"celsius"`
		}
		if err := json.Unmarshal([]byte(text), &body); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		if body.Celsius == nil {
			return 0, fmt.Errorf("%w: missing \"celsius\"", ErrInvalidPayload)
		}
		return *body.Celsius, nil
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidPayload, text)
	}
	return v, nil
}
