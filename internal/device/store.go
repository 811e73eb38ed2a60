package device

import "sync"

// Store holds the current State and fans changes out to subscribers.
//
// Merges are serialized. Each merge notifies every subscriber, in
// subscription order, before the next merge starts. Callbacks run on the
// merging goroutine and must not call Merge or Subscribe; they may read
// Snapshot or unsubscribe themselves.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Store struct {
	// mergeMu serializes Merge and Subscribe so a subscriber never sees
	// notifications from two merges interleaved, and a new subscriber's
	// replay is never older than a notification it gets afterwards.
	mergeMu sync.Mutex

	mu     sync.RWMutex
	state  State
	subs   map[uint64]func(State)
	order  []uint64
	nextID uint64
}

// NewStore creates a Store holding initial.
func NewStore(initial State) *Store {
	return &Store{
		state: initial,
		subs:  make(map[uint64]func(State)),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn and calls it straight away with the current
// snapshot, then once per merge. The returned function removes fn; calling
// it more than once is harmless.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mergeMu.Lock()
	defer s.mergeMu.Unlock()

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.order = append(s.order, id)
	current := s.state
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *Store) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[id]; !ok {
		return
	}
	delete(s.subs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

// Merge applies p to the current state, notifies subscribers with the
// result and returns it. An empty Partial still notifies.
func (s *Store) Merge(p Partial) State {
	s.mergeMu.Lock()
	defer s.mergeMu.Unlock()

	s.mu.Lock()
	s.state = p.Apply(s.state)
	next := s.state
	callbacks := make([]func(State), 0, len(s.order))
	for _, id := range s.order {
		callbacks = append(callbacks, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(next)
	}
	return next
}

// SubscriberCount returns the number of registered subscribers.
func (s *Store) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
