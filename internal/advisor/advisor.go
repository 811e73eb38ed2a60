package advisor

import (
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/homepanel-core/internal/activity"
	"github.com/nerrad567/homepanel-core/internal/device"
)

// Level is the severity of an Advice, in descending priority.
type Level string

// Advice levels.
const (
	LevelCritical Level = "critical"
	LevelAlert    Level = "alert"
	LevelNotice   Level = "notice"
	LevelUpdate   Level = "update"
	LevelSecure   Level = "secure"
)

// RecentWindow is how far back door activity counts as recent.
const RecentWindow = time.Minute

// frequentThreshold is the number of recent events above which movement
// is reported as frequent.
const frequentThreshold = 2

// Advice is the assessment shown to the user.
type Advice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// IsAlarmActive reports whether the software alarm condition holds:
// the temperature is strictly above the alarm threshold.
func IsAlarmActive(s device.State) bool {
	return s.Temperature > s.AlarmThreshold
}

// Advise assesses the home's safety.
//
// Parameters:
//   - logs: Activity entries in any order
//   - temperature: Live temperature in °C
//   - alarmActive: Whether the software alarm condition holds
//   - door: Live door status
//   - now: Reference time for the recent-activity window
//
// Returns:
//   - Advice: The highest-priority finding
func Advise(logs []activity.Entry, temperature float64, alarmActive bool, door device.DoorStatus, now time.Time) Advice {
	temp := strconv.FormatFloat(temperature, 'f', -1, 64)

	if alarmActive {
		return Advice{
			Level:   LevelCritical,
			Message: fmt.Sprintf("⚠️ CRITICAL: Temperature is %s°C! Physical and Software alarms are ACTIVE. Check room immediately.", temp),
		}
	}

	if door == device.DoorOpen {
		return Advice{
			Level:   LevelAlert,
			Message: "🚪 SECURITY ALERT: Main door is currently OPEN. Please verify authorized access.",
		}
	}

	since := now.Add(-RecentWindow)
	var (
		count  int
		newest time.Time
	)
	for _, e := range logs {
		// Entries stamped after now (clock stepped back) still count.
		if !e.Timestamp.After(since) {
			continue
		}
		count++
		if e.Timestamp.After(newest) {
			newest = e.Timestamp
		}
	}

	if count > frequentThreshold {
		return Advice{
			Level:   LevelNotice,
			Message: fmt.Sprintf("ℹ️ ACTIVITY NOTICE: Frequent door movement detected (%d events in 1 min).", count),
		}
	}

	if count > 0 {
		return Advice{
			Level: LevelUpdate,
			Message: fmt.Sprintf("ℹ️ UPDATE: Last door activity was at %s. System is currently secure.",
				newest.In(now.Location()).Format(time.TimeOnly)),
		}
	}

	return Advice{
		Level:   LevelSecure,
		Message: fmt.Sprintf("✅ SYSTEM SECURE: Temperature is stable (%s°C). Door is closed. No recent anomalies.", temp),
	}
}

// ForState is Advise applied to a store snapshot.
func ForState(logs []activity.Entry, s device.State, now time.Time) Advice {
	return Advise(logs, s.Temperature, IsAlarmActive(s), s.Door, now)
}
