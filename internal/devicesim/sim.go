package devicesim

import (
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/homepanel-core/internal/device"
)

// Firmware defaults.
const (
	DefaultTemperature = 24.0
	DefaultThreshold   = 27.0
)

const thresholdPrefix = "/SET_THRESHOLD:"

const rootText = `Home panel node emulator
Use /STATUS to get current status
Commands: /LAMP_ON, /LAMP_OFF, /LAMP_TOGGLE, /PLUG_ON, /PLUG_OFF, /ALARM_ON, /ALARM_OFF
Set threshold: /SET_THRESHOLD:XX.X
`

// Logger defines the logging interface used by the emulator.
type Logger interface {
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}

// Options configures a Sim. Zero values give the firmware's power-on state.
type Options struct {
	// Temperature is the initial reading in °C. Zero means DefaultTemperature.
	Temperature float64

	// Threshold is the firmware alarm threshold. Zero means DefaultThreshold.
	Threshold float64

	// Latency delays every response.
	Latency time.Duration

	Logger Logger
}

// Snapshot is the emulator's internal state.
type Snapshot struct {
	Temperature float64
	Door        device.DoorStatus
	Lamp        bool
	Plug        bool
	Override    bool
	Threshold   float64
}

// Alarm reports what the firmware would drive the buzzer to.
func (s Snapshot) Alarm() bool {
	return s.Temperature > s.Threshold || s.Override
}

// StatusLine renders s as the firmware does.
func (s Snapshot) StatusLine() string {
	return fmt.Sprintf("TEMP:%.2f,DOOR:%s,LAMP:%s,PLUG:%s,ALARM:%s,THRESHOLD:%.1f",
		s.Temperature,
		s.Door,
		onOff(s.Lamp),
		onOff(s.Plug),
		alarmSafe(s.Alarm()),
		s.Threshold,
	)
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func alarmSafe(v bool) string {
	if v {
		return "ALARM"
	}
	return "SAFE"
}

// Sim is an http.Handler emulating the node.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Sim struct {
	router chi.Router
	logger Logger

	mu       sync.Mutex
	state    Snapshot
	latency  time.Duration
	failCode int
	requests int
}

// New creates a Sim with the firmware's power-on state: relays off, door
// closed, no override.
func New(opts Options) *Sim {
	temp := opts.Temperature
	if temp == 0 {
		temp = DefaultTemperature
	}
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	s := &Sim{
		logger:  logger,
		latency: opts.Latency,
		state: Snapshot{
			Temperature: temp,
			Door:        device.DoorClosed,
			Threshold:   threshold,
		},
	}
	s.router = s.buildRouter()
	return s
}

func (s *Sim) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(s.corsHeaders)
	r.Use(s.faults)

	r.Get("/", s.handleRoot)
	r.Get("/STATUS", s.command("STATUS", func(*Snapshot) {}))
	r.Get("/LAMP_ON", s.command("LAMP_ON", func(st *Snapshot) { st.Lamp = true }))
	r.Get("/LAMP_OFF", s.command("LAMP_OFF", func(st *Snapshot) { st.Lamp = false }))
	r.Get("/LAMP_TOGGLE", s.command("LAMP_TOGGLE", func(st *Snapshot) { st.Lamp = !st.Lamp }))
	r.Get("/PLUG_ON", s.command("PLUG_ON", func(st *Snapshot) { st.Plug = true }))
	r.Get("/PLUG_OFF", s.command("PLUG_OFF", func(st *Snapshot) { st.Plug = false }))
	r.Get("/ALARM_ON", s.command("ALARM_ON", func(st *Snapshot) { st.Override = true }))
	r.Get("/ALARM_OFF", s.command("ALARM_OFF", func(st *Snapshot) { st.Override = false }))
	r.NotFound(s.handleNotFound)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Sim) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Sim) corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

// faults applies injected latency and failures before any handler runs.
func (s *Sim) faults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		latency, code := s.latency, s.failCode
		s.mu.Unlock()

		if latency > 0 {
			timer := time.NewTimer(latency)
			select {
			case <-timer.C:
			case <-r.Context().Done():
				timer.Stop()
				return
			}
		}
		if code != 0 {
			http.Error(w, http.StatusText(code), code)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Sim) command(token string, mutate func(*Snapshot)) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		mutate(&s.state)
		line := s.state.StatusLine()
		s.mu.Unlock()

		s.logger.Info("command received", "token", token)
		writeStatus(w, line)
	}
}

func (s *Sim) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rootText)) //nolint:errcheck // client may have gone away
}

// handleNotFound serves SET_THRESHOLD, whose value is part of the path,
// and 404s everything else.
func (s *Sim) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || !strings.HasPrefix(r.URL.Path, thresholdPrefix) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, thresholdPrefix)
	v, err := strconv.ParseFloat(raw, 64)

	s.mu.Lock()
	// Out-of-range or unparsable values are ignored, but still answered.
	if err == nil && v > 0 && v < 100 {
		s.state.Threshold = v
	}
	line := s.state.StatusLine()
	s.mu.Unlock()

	s.logger.Info("threshold command received", "value", raw, "accepted", err == nil && v > 0 && v < 100)
	writeStatus(w, line)
}

func writeStatus(w http.ResponseWriter, line string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(line)) //nolint:errcheck // client may have gone away
}

// ─── Test hooks ─────────────────────────────────────────────────────

// SetTemperature sets the sensor reading in °C.
func (s *Sim) SetTemperature(celsius float64) {
	s.mu.Lock()
	s.state.Temperature = celsius
	s.mu.Unlock()
}

// SetDoor sets the door sensor.
func (s *Sim) SetDoor(door device.DoorStatus) {
	s.mu.Lock()
	s.state.Door = door
	s.mu.Unlock()
}

// SetLatency delays every later response by d.
func (s *Sim) SetLatency(d time.Duration) {
	s.mu.Lock()
	s.latency = d
	s.mu.Unlock()
}

// FailWith makes every later request answer with HTTP status code.
// A code of 0 restores normal behaviour.
func (s *Sim) FailWith(code int) {
	s.mu.Lock()
	s.failCode = code
	s.mu.Unlock()
}

// State returns the emulator's current state.
func (s *Sim) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Requests returns how many requests have reached the emulator.
func (s *Sim) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Drift nudges the temperature the way a real room wanders: about one call
// in three moves it by up to ±0.1 °C, rounded to one decimal.
func (s *Sim) Drift(r *rand.Rand) {
	if r.Float64() <= 0.7 {
		return
	}
	change := (r.Float64() - 0.5) * 0.2

	s.mu.Lock()
	s.state.Temperature = math.Round((s.state.Temperature+change)*10) / 10
	s.mu.Unlock()
}
