package activity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/homepanel-core/internal/device"
)

// mockRepository records calls and can be told to fail.
type mockRepository struct {
	mu       sync.Mutex
	recorded []Entry
	stored   []Entry
	prunes   []int
	err      error
}

func (m *mockRepository) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recorded = append(m.recorded, e)
	return nil
}

func (m *mockRepository) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := append([]Entry(nil), m.stored...)
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRepository) Prune(_ context.Context, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prunes = append(m.prunes, keep)
	return 0, nil
}

func (m *mockRepository) recordedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recorded)
}

type recordingLogger struct {
	noopLogger
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

func setDoor(store *device.Store, door device.DoorStatus) {
	store.Merge(device.Partial{Door: &door})
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

// ─── Transitions ────────────────────────────────────────────────────

func TestLog_RecordsTransitionsOnly(t *testing.T) {
	store := device.NewStore(device.DefaultState())
	log := NewLog(Options{})
	defer log.Attach(store)()

	if log.Len() != 0 {
		t.Fatalf("replay of CLOSED door created %d entries, want 0", log.Len())
	}

	setDoor(store, device.DoorOpen)
	setDoor(store, device.DoorOpen)
	store.Merge(device.Partial{Temperature: device.Ptr(22.0)})
	setDoor(store, device.DoorClosed)

	entries := log.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries() len = %d, want 2", len(entries))
	}
	if entries[0].Event != EventDoorClosed || entries[1].Event != EventDoorOpened {
		t.Errorf("Entries() events = [%s, %s], want newest first [Door Closed, Door Opened]",
			entries[0].Event, entries[1].Event)
	}
	for _, e := range entries {
		if e.Type != TypeInfo {
			t.Errorf("entry %s Type = %q, want info", e.Event, e.Type)
		}
		if e.ID == "" {
			t.Error("entry has empty ID")
		}
	}
	if entries[0].ID == entries[1].ID {
		t.Error("entries share an ID")
	}
}

func TestLog_ReplayOfOpenDoorIsATransition(t *testing.T) {
	state := device.DefaultState()
	state.Door = device.DoorOpen
	store := device.NewStore(state)

	log := NewLog(Options{})
	defer log.Attach(store)()

	entries := log.Entries()
	if len(entries) != 1 || entries[0].Event != EventDoorOpened {
		t.Errorf("Entries() = %v, want one Door Opened", entries)
	}
}

func TestLog_UsesClock(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	store := device.NewStore(device.DefaultState())
	log := NewLog(Options{Now: func() time.Time { return at }})
	defer log.Attach(store)()

	setDoor(store, device.DoorOpen)

	if got := log.Entries()[0].Timestamp; !got.Equal(at) {
		t.Errorf("Timestamp = %v, want %v", got, at)
	}
}

func TestLog_EntriesIsACopy(t *testing.T) {
	store := device.NewStore(device.DefaultState())
	log := NewLog(Options{})
	defer log.Attach(store)()

	setDoor(store, device.DoorOpen)
	got := log.Entries()
	got[0].Event = "tampered"

	if log.Entries()[0].Event != EventDoorOpened {
		t.Error("mutating the Entries() result changed the log")
	}
}

func TestLog_RecentAndMaxEntries(t *testing.T) {
	store := device.NewStore(device.DefaultState())
	log := NewLog(Options{MaxEntries: 3})
	defer log.Attach(store)()

	for i := 0; i < 5; i++ {
		setDoor(store, device.DoorOpen)
		setDoor(store, device.DoorClosed)
	}

	if log.Len() != 3 {
		t.Errorf("Len() = %d, want 3 (capped)", log.Len())
	}
	if got := log.Recent(2); len(got) != 2 {
		t.Errorf("Recent(2) len = %d, want 2", len(got))
	}
	if got := log.Recent(10); len(got) != 3 {
		t.Errorf("Recent(10) len = %d, want 3", len(got))
	}
	if got := log.Recent(0)[0].Event; got != EventDoorClosed {
		t.Errorf("newest event = %q, want %q", got, EventDoorClosed)
	}
}

func TestLog_Unbounded(t *testing.T) {
	store := device.NewStore(device.DefaultState())
	log := NewLog(Options{})
	defer log.Attach(store)()

	for i := 0; i < 100; i++ {
		setDoor(store, device.DoorOpen)
		setDoor(store, device.DoorClosed)
	}
	if log.Len() != 200 {
		t.Errorf("Len() = %d, want 200", log.Len())
	}
}

func TestLog_Subscribe(t *testing.T) {
	store := device.NewStore(device.DefaultState())
	log := NewLog(Options{})
	defer log.Attach(store)()

	var got []string
	unsubscribe := log.Subscribe(func(e Entry) { got = append(got, e.Event) })

	setDoor(store, device.DoorOpen)
	unsubscribe()
	setDoor(store, device.DoorClosed)

	if len(got) != 1 || got[0] != EventDoorOpened {
		t.Errorf("listener saw %v, want [Door Opened]", got)
	}
}

// ─── Persistence ────────────────────────────────────────────────────

func TestLog_RunPersists(t *testing.T) {
	repo := &mockRepository{}
	store := device.NewStore(device.DefaultState())
	log := NewLog(Options{Repository: repo, MaxEntries: 10})
	defer log.Attach(store)()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		log.Run(ctx)
		close(done)
	}()

	setDoor(store, device.DoorOpen)
	setDoor(store, device.DoorClosed)

	waitFor(t, func() bool { return repo.recordedCount() == 2 })
	cancel()
	<-done

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.recorded[0].Event != EventDoorOpened {
		t.Errorf("first persisted event = %q, want %q", repo.recorded[0].Event, EventDoorOpened)
	}
	if len(repo.prunes) != 2 || repo.prunes[0] != 10 {
		t.Errorf("prunes = %v, want two calls keeping 10", repo.prunes)
	}
}

func TestLog_RunDrainsOnCancel(t *testing.T) {
	repo := &mockRepository{}
	store := device.NewStore(device.DefaultState())
	log := NewLog(Options{Repository: repo})
	defer log.Attach(store)()

	setDoor(store, device.DoorOpen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	log.Run(ctx)

	if repo.recordedCount() != 1 {
		t.Errorf("persisted %d entries after drain, want 1", repo.recordedCount())
	}
}

func TestLog_PersistenceFailureKeepsMemoryLog(t *testing.T) {
	repo := &mockRepository{err: errors.New("disk full")}
	logger := &recordingLogger{}
	store := device.NewStore(device.DefaultState())
	log := NewLog(Options{Repository: repo, Logger: logger})
	defer log.Attach(store)()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go log.Run(ctx)

	setDoor(store, device.DoorOpen)

	waitFor(t, func() bool { return logger.errorCount() == 1 })
	if log.Len() != 1 {
		t.Errorf("Len() = %d, want 1", log.Len())
	}
}

func TestLog_FullBacklogDoesNotBlock(t *testing.T) {
	repo := &mockRepository{}
	logger := &recordingLogger{}
	store := device.NewStore(device.DefaultState())
	log := NewLog(Options{Repository: repo, BufferSize: 1, Logger: logger})
	defer log.Attach(store)()

	// No Run goroutine: the second entry cannot be queued.
	setDoor(store, device.DoorOpen)
	setDoor(store, device.DoorClosed)

	if log.Len() != 2 {
		t.Errorf("Len() = %d, want 2", log.Len())
	}
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.warns) != 1 {
		t.Errorf("warnings = %d, want 1", len(logger.warns))
	}
}

func TestLog_Load(t *testing.T) {
	stored := []Entry{
		testEntry("2", EventDoorClosed, time.Unix(200, 0)),
		testEntry("1", EventDoorOpened, time.Unix(100, 0)),
	}
	repo := &mockRepository{stored: stored}
	log := NewLog(Options{Repository: repo})

	if err := log.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := log.Entries(); len(got) != 2 || got[0].ID != "2" {
		t.Errorf("Entries() after Load = %v", got)
	}

	repo.err = errors.New("boom")
	if err := log.Load(context.Background()); err == nil {
		t.Error("Load() expected error, got nil")
	}
}

func TestLog_LoadAgainstSQLite(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db.DB, "hallway")
	store := device.NewStore(device.DefaultState())

	first := NewLog(Options{Repository: repo})
	detach := first.Attach(store)
	setDoor(store, device.DoorOpen)
	setDoor(store, device.DoorClosed)
	detach()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	first.Run(ctx)

	second := NewLog(Options{Repository: repo})
	if err := second.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got := second.Entries()
	if len(got) != 2 || got[0].Event != EventDoorClosed {
		t.Errorf("restored entries = %v, want [Door Closed, Door Opened]", got)
	}
}

func TestLog_LoadWithoutRepository(t *testing.T) {
	if err := NewLog(Options{}).Load(context.Background()); err != nil {
		t.Errorf("Load() error = %v, want nil", err)
	}
}

// ─── JSON ───────────────────────────────────────────────────────────

func TestEntry_JSONUsesEpochMillis(t *testing.T) {
	e := Entry{
		ID:        "abc",
		Timestamp: time.UnixMilli(1772366400123).UTC(),
		Event:     EventDoorOpened,
		Type:      TypeInfo,
	}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"id":"abc","timestamp":1772366400123,"event":"Door Opened","type":"info"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	var back Entry
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !back.Timestamp.Equal(e.Timestamp) || back.ID != e.ID {
		t.Errorf("Unmarshal() = %+v, want %+v", back, e)
	}
}
