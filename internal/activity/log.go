package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/homepanel-core/internal/device"
)

const (
	defaultBufferSize = 64

	// persistTimeout bounds each repository write made by Run.
	persistTimeout = 5 * time.Second
)

// StateSource is the part of the device store the Log needs.
// *device.Store satisfies it.
type StateSource interface {
	Subscribe(fn func(device.State)) (unsubscribe func())
}

// Logger defines the logging interface used by the Log.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Log.
type Options struct {
	// Repository persists entries. Nil keeps the log in memory only.
	Repository Repository

	// MaxEntries caps the in-memory log and the persisted rows.
	// 0 keeps every entry.
	MaxEntries int

	// BufferSize is the number of entries that may wait for persistence.
	// Defaults to 64; entries beyond it are logged and not persisted.
	BufferSize int

	Logger Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Log is the in-memory activity log, newest entry first.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Log struct {
	repo   Repository
	max    int
	logger Logger
	now    func() time.Time

	pending chan Entry

	mu       sync.RWMutex
	entries  []Entry
	prevDoor device.DoorStatus

	listenerMu sync.Mutex
	listeners  map[uint64]func(Entry)
	nextID     uint64
}

// NewLog creates an empty Log. The door is assumed CLOSED until the store
// says otherwise.
func NewLog(opts Options) *Log {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	size := opts.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}

	l := &Log{
		repo:      opts.Repository,
		max:       opts.MaxEntries,
		logger:    logger,
		now:       now,
		prevDoor:  device.DoorClosed,
		listeners: make(map[uint64]func(Entry)),
	}
	if l.repo != nil {
		l.pending = make(chan Entry, size)
	}
	return l
}

// Attach subscribes the Log to src. The returned function detaches it.
func (l *Log) Attach(src StateSource) (detach func()) {
	return src.Subscribe(l.observe)
}

// observe runs inside a store notification.
func (l *Log) observe(s device.State) {
	l.mu.Lock()
	if s.Door == l.prevDoor || s.Door == "" {
		l.mu.Unlock()
		return
	}
	l.prevDoor = s.Door
	e := doorEntry(s.Door, l.now())
	l.entries = append([]Entry{e}, l.entries...)
	if l.max > 0 && len(l.entries) > l.max {
		l.entries = l.entries[:l.max]
	}
	l.mu.Unlock()

	if l.pending != nil {
		select {
		case l.pending <- e:
		default:
			l.logger.Warn("activity persistence backlog full, entry kept in memory only", "id", e.ID, "event", e.Event)
		}
	}

	l.notify(e)
}

func (l *Log) notify(e Entry) {
	l.listenerMu.Lock()
	fns := make([]func(Entry), 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	l.listenerMu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}

// Subscribe registers fn to be called with every new entry. fn runs on the
// goroutine that merged the door change and must not block.
func (l *Log) Subscribe(fn func(Entry)) (unsubscribe func()) {
	l.listenerMu.Lock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	l.listenerMu.Unlock()

	return func() {
		l.listenerMu.Lock()
		delete(l.listeners, id)
		l.listenerMu.Unlock()
	}
}

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []Entry {
	return l.Recent(0)
}

// Recent returns up to limit entries, newest first. A limit of 0 or less
// returns all of them.
func (l *Log) Recent(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, n)
	copy(out, l.entries[:n])
	return out
}

// Len returns the number of entries held in memory.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Load replaces the in-memory log with the repository's entries. It is
// meant to be called once, before Attach. Without a repository it does
// nothing.
func (l *Log) Load(ctx context.Context) error {
	if l.repo == nil {
		return nil
	}

	entries, err := l.repo.Recent(ctx, l.max)
	if err != nil {
		return fmt.Errorf("loading activity log: %w", err)
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()

	l.logger.Info("activity log loaded", "entries", len(entries))
	return nil
}

// Run persists queued entries until ctx is cancelled, then drains what is
// already queued. Without a repository it returns immediately.
func (l *Log) Run(ctx context.Context) {
	if l.pending == nil {
		return
	}

	for {
		select {
		case e := <-l.pending:
			l.persist(ctx, e)
		case <-ctx.Done():
			l.drain()
			return
		}
	}
}

func (l *Log) drain() {
	for {
		select {
		case e := <-l.pending:
			l.persist(context.Background(), e)
		default:
			return
		}
	}
}

func (l *Log) persist(parent context.Context, e Entry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), persistTimeout)
	defer cancel()

	if err := l.repo.Record(ctx, e); err != nil {
		l.logger.Error("persisting activity entry", "id", e.ID, "error", err)
		return
	}

	if l.max > 0 {
		if _, err := l.repo.Prune(ctx, l.max); err != nil {
			l.logger.Warn("pruning activity log", "error", err)
		}
	}
}
