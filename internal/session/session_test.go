package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/homepanel-core/internal/device"
	"github.com/nerrad567/homepanel-core/internal/devicesim"
	"github.com/nerrad567/homepanel-core/internal/transport"
)

// fakeTransport answers requests from a handler func and records paths.
type fakeTransport struct {
	mu      sync.Mutex
	paths   []string
	respond func(ctx context.Context, address, path string) (string, error)
}

func (f *fakeTransport) Request(ctx context.Context, address, path string) (string, error) {
	f.mu.Lock()
	f.paths = append(f.paths, address+"/"+path)
	respond := f.respond
	f.mu.Unlock()
	return respond(ctx, address, path)
}

func (f *fakeTransport) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func okStatus(line string) func(context.Context, string, string) (string, error) {
	return func(context.Context, string, string) (string, error) { return line, nil }
}

// recordingLogger captures warn messages.
type recordingLogger struct {
	noopLogger
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}

func newTestSession(ft *fakeTransport, interval time.Duration) (*Session, *device.Store) {
	store := device.NewStore(device.DefaultState())
	s := New(Options{Transport: ft, Store: store, PollInterval: interval})
	return s, store
}

// ─── Commands ───────────────────────────────────────────────────────

func TestSendCommand_NoAddress(t *testing.T) {
	ft := &fakeTransport{respond: okStatus("")}
	s, _ := newTestSession(ft, time.Hour)

	err := s.SendCommand(context.Background(), device.SetLamp{On: true})
	if !errors.Is(err, ErrNoAddress) {
		t.Fatalf("SendCommand() error = %v, want ErrNoAddress", err)
	}
	if n := len(ft.calls()); n != 0 {
		t.Errorf("made %d requests, want 0", n)
	}
}

func TestSendCommand_MergesReply(t *testing.T) {
	ft := &fakeTransport{respond: func(_ context.Context, _, path string) (string, error) {
		if path == "LAMP_ON" {
			return "TEMP:24.50,DOOR:CLOSED,LAMP:ON,PLUG:OFF,ALARM:SAFE,THRESHOLD:27.0", nil
		}
		return "TEMP:24.50,DOOR:CLOSED,LAMP:OFF,PLUG:OFF,ALARM:SAFE,THRESHOLD:27.0", nil
	}}
	s, store := newTestSession(ft, time.Hour)
	if err := s.Connect("dev"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer s.Close()
	waitFor(t, func() bool { return store.Snapshot().Connected })

	if err := s.SendCommand(context.Background(), device.SetLamp{On: true}); err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}

	got := store.Snapshot()
	if !got.LampOn || got.Temperature != 24.5 || !got.Connected || got.DeviceThreshold != 27.0 {
		t.Errorf("state after command = %+v", got)
	}
}

func TestSendCommand_FailureMarksDisconnected(t *testing.T) {
	var fail atomic.Bool
	ft := &fakeTransport{respond: func(context.Context, string, string) (string, error) {
		if fail.Load() {
			return "", transport.ErrTimeout
		}
		return "LAMP:OFF", nil
	}}
	s, store := newTestSession(ft, time.Hour)
	_ = s.Connect("dev")
	defer s.Close()
	waitFor(t, func() bool { return store.Snapshot().Connected })

	fail.Store(true)
	before := len(ft.calls())
	err := s.SendCommand(context.Background(), device.SetPlug{On: true})

	if !errors.Is(err, transport.ErrTimeout) {
		t.Fatalf("SendCommand() error = %v, want ErrTimeout", err)
	}
	if store.Snapshot().Connected {
		t.Error("Connected should be false after a failed command")
	}
	if n := len(ft.calls()) - before; n != 1 {
		t.Errorf("made %d requests for one command, want 1 (no retries)", n)
	}
}

func TestSendCommand_WaitsForInFlightPoll(t *testing.T) {
	release := make(chan struct{})
	var inFlight, maxInFlight atomic.Int32
	ft := &fakeTransport{respond: func(_ context.Context, _, path string) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		if path == "STATUS" {
			<-release
		}
		return "LAMP:ON", nil
	}}
	s, _ := newTestSession(ft, time.Hour)
	_ = s.Connect("dev")
	defer s.Close()

	waitFor(t, func() bool { return inFlight.Load() == 1 })

	errCh := make(chan error, 1)
	go func() { errCh <- s.SendCommand(context.Background(), device.SetLamp{On: true}) }()

	select {
	case <-errCh:
		t.Fatal("command completed while a poll was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}
	if maxInFlight.Load() != 1 {
		t.Errorf("max concurrent requests = %d, want 1", maxInFlight.Load())
	}
}

func TestSendCommand_ContextCancelledWhileWaiting(t *testing.T) {
	release := make(chan struct{})
	ft := &fakeTransport{respond: func(context.Context, string, string) (string, error) {
		<-release
		return "", nil
	}}
	s, _ := newTestSession(ft, time.Hour)
	_ = s.Connect("dev")
	defer s.Close()
	defer close(release)
	waitFor(t, func() bool { return len(ft.calls()) == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.SendCommand(ctx, device.SetLamp{On: true})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("SendCommand() error = %v, want context.DeadlineExceeded", err)
	}
	if n := len(ft.calls()); n != 1 {
		t.Errorf("requests = %d, want only the poll", n)
	}
}

func TestSendCommand_CancelledMidRequestKeepsConnected(t *testing.T) {
	ft := &fakeTransport{respond: func(ctx context.Context, _, path string) (string, error) {
		if path == "LAMP_ON" {
			<-ctx.Done()
			return "", transport.ErrTransport
		}
		return "LAMP:OFF", nil
	}}
	s, store := newTestSession(ft, time.Hour)
	_ = s.Connect("dev")
	defer s.Close()
	waitFor(t, func() bool { return store.Snapshot().Connected })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.SendCommand(ctx, device.SetLamp{On: true})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("SendCommand() error = %v, want context.DeadlineExceeded", err)
	}
	if errors.Is(err, transport.ErrTransport) {
		t.Errorf("SendCommand() error = %v, should not report a transport failure", err)
	}
	if !store.Snapshot().Connected {
		t.Error("cancelled command marked the state disconnected")
	}
}

// ─── Polling ────────────────────────────────────────────────────────

func TestConnect_EmptyAddress(t *testing.T) {
	s, _ := newTestSession(&fakeTransport{respond: okStatus("")}, time.Hour)
	if err := s.Connect("   "); !errors.Is(err, ErrNoAddress) {
		t.Errorf("Connect() error = %v, want ErrNoAddress", err)
	}
}

func TestConnect_ImmediateFetchThenPolls(t *testing.T) {
	ft := &fakeTransport{respond: okStatus("TEMP:21.00,DOOR:OPEN")}
	s, store := newTestSession(ft, 20*time.Millisecond)

	_ = s.Connect("dev")
	defer s.Close()

	waitFor(t, func() bool { return len(ft.calls()) >= 3 })

	got := store.Snapshot()
	if !got.Connected || got.Door != device.DoorOpen || got.Temperature != 21 {
		t.Errorf("state = %+v", got)
	}
	for _, c := range ft.calls() {
		if c != "dev/STATUS" {
			t.Errorf("unexpected request %q", c)
		}
	}
}

func TestPoll_FailureMarksDisconnected(t *testing.T) {
	var fail atomic.Bool
	ft := &fakeTransport{respond: func(context.Context, string, string) (string, error) {
		if fail.Load() {
			return "", &transport.HTTPError{StatusCode: http.StatusInternalServerError}
		}
		return "LAMP:ON", nil
	}}
	s, store := newTestSession(ft, 10*time.Millisecond)
	_ = s.Connect("dev")
	defer s.Close()

	waitFor(t, func() bool { return store.Snapshot().Connected })
	fail.Store(true)
	waitFor(t, func() bool { return !store.Snapshot().Connected })

	// Last known values survive a disconnect.
	if !store.Snapshot().LampOn {
		t.Error("LampOn lost on transport failure")
	}
}

func TestPoll_SkippedWhileBusy(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	ft := &fakeTransport{respond: func(context.Context, string, string) (string, error) {
		<-release
		return "LAMP:ON", nil
	}}
	s, _ := newTestSession(ft, 5*time.Millisecond)
	_ = s.Connect("dev")
	defer s.Close()
	defer once.Do(func() { close(release) })

	waitFor(t, func() bool { return len(ft.calls()) == 1 })

	if s.Refresh(context.Background()) {
		t.Error("Refresh() dispatched while a request was in flight")
	}

	time.Sleep(50 * time.Millisecond) // several ticks
	if n := len(ft.calls()); n != 1 {
		t.Errorf("requests = %d while first is in flight, want 1", n)
	}
	once.Do(func() { close(release) })
}

func TestPoll_DecodeWarningsLogged(t *testing.T) {
	ft := &fakeTransport{respond: okStatus("TEMP:abc,DOOR:OPEN")}
	store := device.NewStore(device.DefaultState())
	logger := &recordingLogger{}
	s := New(Options{Transport: ft, Store: store, PollInterval: time.Hour, Logger: logger})

	_ = s.Connect("dev")
	defer s.Close()
	waitFor(t, func() bool { return store.Snapshot().Connected })

	if store.Snapshot().Door != device.DoorOpen {
		t.Error("valid fields should merge despite a malformed one")
	}
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.warns) != 1 {
		t.Errorf("warnings logged = %d, want 1", len(logger.warns))
	}
}

func TestDisconnect_StopsPollingKeepsAddress(t *testing.T) {
	ft := &fakeTransport{respond: okStatus("LAMP:ON")}
	s, store := newTestSession(ft, 10*time.Millisecond)
	_ = s.Connect("dev")
	waitFor(t, func() bool { return store.Snapshot().Connected })

	s.Close()
	if store.Snapshot().Connected {
		t.Error("Connected should be false after Disconnect")
	}
	if s.Address() != "dev" {
		t.Errorf("Address() = %q, want kept", s.Address())
	}
	if s.Info().Polling {
		t.Error("Info().Polling = true after Disconnect")
	}

	n := len(ft.calls())
	time.Sleep(50 * time.Millisecond)
	if len(ft.calls()) != n {
		t.Error("polling continued after Disconnect")
	}
}

func TestDisconnect_DiscardsInFlightResult(t *testing.T) {
	release := make(chan struct{})
	ft := &fakeTransport{respond: func(ctx context.Context, _, _ string) (string, error) {
		<-release
		return "LAMP:ON", nil // ignores ctx, like a slow device that answers anyway
	}}
	s, store := newTestSession(ft, time.Hour)
	_ = s.Connect("dev")
	waitFor(t, func() bool { return len(ft.calls()) == 1 })

	s.Disconnect()
	close(release)
	time.Sleep(30 * time.Millisecond)

	got := store.Snapshot()
	if got.Connected || got.LampOn {
		t.Errorf("stale poll result applied after Disconnect: %+v", got)
	}
}

func TestConnect_NewAddressDiscardsOld(t *testing.T) {
	releaseOld := make(chan struct{})
	ft := &fakeTransport{respond: func(_ context.Context, address, _ string) (string, error) {
		if address == "old" {
			<-releaseOld
			return "TEMP:99.00", nil
		}
		return "TEMP:20.00", nil
	}}
	s, store := newTestSession(ft, time.Hour)
	_ = s.Connect("old")
	waitFor(t, func() bool { return len(ft.calls()) == 1 })

	_ = s.Connect("new")
	close(releaseOld)
	defer s.Close()

	waitFor(t, func() bool { return store.Snapshot().Temperature == 20 })
	time.Sleep(30 * time.Millisecond)
	if store.Snapshot().Temperature != 20 {
		t.Errorf("Temperature = %v, old address result leaked", store.Snapshot().Temperature)
	}
	if s.Address() != "new" {
		t.Errorf("Address() = %q", s.Address())
	}
}

func TestRefresh(t *testing.T) {
	ft := &fakeTransport{respond: okStatus("PLUG:ON")}
	s, store := newTestSession(ft, time.Hour)

	if s.Refresh(context.Background()) {
		t.Error("Refresh() without address should not dispatch")
	}

	_ = s.Connect("dev")
	defer s.Close()
	waitFor(t, func() bool { return store.Snapshot().Connected })

	if !s.Refresh(context.Background()) {
		t.Error("Refresh() should dispatch when idle")
	}
	if len(ft.calls()) != 2 {
		t.Errorf("requests = %d, want 2", len(ft.calls()))
	}
}

// ─── Against the emulator ───────────────────────────────────────────

func TestSession_AgainstEmulator(t *testing.T) {
	sim := devicesim.New(devicesim.Options{})
	sim.SetTemperature(24.5)
	srv := httptest.NewServer(sim)
	defer srv.Close()

	store := device.NewStore(device.DefaultState())
	s := New(Options{
		Transport:    transport.New(transport.WithTimeout(time.Second)),
		Store:        store,
		PollInterval: time.Hour,
	})
	_ = s.Connect(srv.URL)
	defer s.Close()
	waitFor(t, func() bool { return store.Snapshot().Connected })

	ctx := context.Background()
	for _, cmd := range []device.Command{
		device.SetLamp{On: true},
		device.SetPlug{On: true},
		device.SetThreshold{Celsius: 30},
	} {
		if err := s.SendCommand(ctx, cmd); err != nil {
			t.Fatalf("SendCommand(%T) error = %v", cmd, err)
		}
	}

	got := store.Snapshot()
	if !got.LampOn || !got.PlugOn || got.DeviceThreshold != 30 || got.Temperature != 24.5 {
		t.Errorf("state = %+v", got)
	}
	if got.AlarmThreshold != device.DefaultAlarmThreshold {
		t.Errorf("device THRESHOLD leaked into AlarmThreshold: %v", got.AlarmThreshold)
	}

	sim.SetDoor(device.DoorOpen)
	s.Refresh(ctx)
	if store.Snapshot().Door != device.DoorOpen {
		t.Error("door change not picked up by Refresh")
	}

	sim.FailWith(http.StatusServiceUnavailable)
	if err := s.SendCommand(ctx, device.ToggleLamp{}); err == nil {
		t.Fatal("SendCommand() should fail when the device errors")
	}
	if store.Snapshot().Connected {
		t.Error("Connected should be false after device error")
	}
}
