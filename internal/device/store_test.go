package device

import (
	"runtime"
	"sync"
	"testing"
)

func TestStore_SubscribeReplaysCurrent(t *testing.T) {
	store := NewStore(State{Temperature: 21, Door: DoorOpen})

	var got []State
	unsubscribe := store.Subscribe(func(s State) { got = append(got, s) })
	defer unsubscribe()

	if len(got) != 1 {
		t.Fatalf("got %d notifications on subscribe, want 1", len(got))
	}
	if got[0].Temperature != 21 || got[0].Door != DoorOpen {
		t.Errorf("replayed %+v", got[0])
	}
}

func TestStore_MergeNotifiesInOrder(t *testing.T) {
	store := NewStore(DefaultState())

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		store.Subscribe(func(State) { order = append(order, name) })
	}
	order = nil

	store.Merge(Partial{LampOn: Ptr(true)})

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestStore_MergeIsShallow(t *testing.T) {
	initial := State{LampOn: true, PlugOn: true, Door: DoorOpen, Temperature: 30, AlarmThreshold: 35, Connected: true}
	store := NewStore(initial)

	got := store.Merge(Partial{PlugOn: Ptr(false)})

	want := initial
	want.PlugOn = false
	if got != want {
		t.Errorf("Merge() = %+v, want %+v", got, want)
	}
	if store.Snapshot() != want {
		t.Errorf("Snapshot() = %+v, want %+v", store.Snapshot(), want)
	}
}

func TestStore_SnapshotsAreValues(t *testing.T) {
	store := NewStore(DefaultState())

	var held State
	store.Subscribe(func(s State) { held = s })
	before := store.Snapshot()

	store.Merge(Partial{Temperature: Ptr(50.0)})

	if before.Temperature != 0 {
		t.Error("an earlier snapshot changed after Merge")
	}
	if held.Temperature != 50 {
		t.Errorf("subscriber saw %v, want 50", held.Temperature)
	}
}

func TestStore_Unsubscribe(t *testing.T) {
	store := NewStore(DefaultState())

	var a, b int
	unsubA := store.Subscribe(func(State) { a++ })
	store.Subscribe(func(State) { b++ })

	unsubA()
	unsubA() // idempotent

	store.Merge(Partial{LampOn: Ptr(true)})

	if a != 1 {
		t.Errorf("unsubscribed callback ran %d times, want 1 (replay only)", a)
	}
	if b != 2 {
		t.Errorf("remaining callback ran %d times, want 2", b)
	}
	if store.SubscriberCount() != 1 {
		t.Errorf("SubscriberCount() = %d, want 1", store.SubscriberCount())
	}
}

func TestStore_UnsubscribeFromCallback(t *testing.T) {
	store := NewStore(DefaultState())

	calls := 0
	var unsubscribe func()
	unsubscribe = store.Subscribe(func(State) {
		calls++
		if calls == 2 && unsubscribe != nil {
			unsubscribe()
		}
	})

	store.Merge(Partial{LampOn: Ptr(true)})
	store.Merge(Partial{LampOn: Ptr(false)})

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestStore_ConcurrentMergesNeverInterleave(t *testing.T) {
	store := NewStore(DefaultState())

	var (
		mu       sync.Mutex
		inFlight bool
		overlaps int
	)
	store.Subscribe(func(State) {
		mu.Lock()
		if inFlight {
			overlaps++
		}
		inFlight = true
		mu.Unlock()

		runtime.Gosched()

		mu.Lock()
		inFlight = false
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			store.Merge(Partial{Temperature: &v})
		}(float64(i))
	}
	wg.Wait()

	if overlaps != 0 {
		t.Errorf("%d notifications overlapped", overlaps)
	}
}
