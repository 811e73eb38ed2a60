package telemetry

import (
	"sync"
	"time"

	"github.com/nerrad567/homepanel-core/internal/activity"
	"github.com/nerrad567/homepanel-core/internal/advisor"
	"github.com/nerrad567/homepanel-core/internal/device"
)

// Measurement names.
const (
	MeasurementState = "device_state"
	MeasurementDoor  = "door_event"
)

// PointWriter queues one point. *influxdb.Client satisfies it.
type PointWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time)
}

// StateSource provides device state changes.
type StateSource interface {
	Subscribe(fn func(device.State)) (unsubscribe func())
}

// ActivitySource provides new activity entries.
type ActivitySource interface {
	Subscribe(fn func(activity.Entry)) (unsubscribe func())
}

// Recorder turns store notifications into points.
type Recorder struct {
	writer PointWriter
	tags   map[string]string
	now    func() time.Time

	mu      sync.Mutex
	last    device.State
	written bool
}

// NewRecorder creates a Recorder tagging every point with node.
func NewRecorder(writer PointWriter, node string) *Recorder {
	return &Recorder{
		writer: writer,
		tags:   map[string]string{"node": node},
		now:    time.Now,
	}
}

// AttachStore records src's state on every change.
func (r *Recorder) AttachStore(src StateSource) (detach func()) {
	return src.Subscribe(r.RecordState)
}

// AttachActivity records every new entry from src.
func (r *Recorder) AttachActivity(src ActivitySource) (detach func()) {
	return src.Subscribe(r.RecordEntry)
}

// RecordState writes s unless it equals the last state written. Polls
// that report nothing new produce no points.
func (r *Recorder) RecordState(s device.State) {
	r.mu.Lock()
	if r.written && s == r.last {
		r.mu.Unlock()
		return
	}
	r.last = s
	r.written = true
	r.mu.Unlock()

	r.writer.WritePoint(MeasurementState, r.tags, StateFields(s), r.now())
}

// RecordEntry writes one door event.
func (r *Recorder) RecordEntry(e activity.Entry) {
	r.writer.WritePoint(MeasurementDoor, r.tags, map[string]any{
		"event": e.Event,
		"open":  boolField(e.Event == activity.EventDoorOpened),
	}, e.Timestamp)
}

// StateFields maps a state onto InfluxDB fields.
func StateFields(s device.State) map[string]any {
	return map[string]any{
		"temperature_c":      s.Temperature,
		"alarm_threshold_c":  s.AlarmThreshold,
		"device_threshold_c": s.DeviceThreshold,
		"lamp_on":            boolField(s.LampOn),
		"plug_on":            boolField(s.PlugOn),
		"buzzer_on":          boolField(s.BuzzerOn),
		"door_open":          boolField(s.Door == device.DoorOpen),
		"connected":          boolField(s.Connected),
		"alarm_active":       boolField(advisor.IsAlarmActive(s)),
	}
}

func boolField(v bool) int {
	if v {
		return 1
	}
	return 0
}
