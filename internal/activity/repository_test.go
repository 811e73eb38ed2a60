package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/homepanel-core/internal/infrastructure/database"
	"github.com/nerrad567/homepanel-core/migrations"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func testEntry(id string, event string, at time.Time) Entry {
	return Entry{ID: id, Timestamp: at, Event: event, Type: TypeInfo}
}

func TestSQLiteRepository_RecordAndRecent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db.DB, "hallway")
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, ev := range []string{EventDoorOpened, EventDoorClosed, EventDoorOpened} {
		e := testEntry(string(rune('a'+i)), ev, base.Add(time.Duration(i)*time.Second))
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record(%d) error = %v", i, err)
		}
	}

	got, err := repo.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent() returned %d entries, want 3", len(got))
	}
	if got[0].ID != "c" || got[2].ID != "a" {
		t.Errorf("Recent() order = %s,%s,%s, want c,b,a", got[0].ID, got[1].ID, got[2].ID)
	}
	if !got[0].Timestamp.Equal(base.Add(2 * time.Second)) {
		t.Errorf("Timestamp = %v, want %v", got[0].Timestamp, base.Add(2*time.Second))
	}
	if got[1].Event != EventDoorClosed || got[1].Type != TypeInfo {
		t.Errorf("entry b = %+v", got[1])
	}

	limited, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent(2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Recent(2) returned %d entries, want 2", len(limited))
	}
}

func TestSQLiteRepository_ScopedByNode(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	hall := NewSQLiteRepository(db.DB, "hallway")
	garage := NewSQLiteRepository(db.DB, "garage")

	if err := hall.Record(ctx, testEntry("h1", EventDoorOpened, time.Now())); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := garage.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("garage sees %d entries, want 0", len(got))
	}
}

func TestSQLiteRepository_RecordValidation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db.DB, "hallway")
	ctx := context.Background()

	tests := []struct {
		name  string
		entry Entry
	}{
		{name: "missing id", entry: Entry{Event: EventDoorOpened, Type: TypeInfo}},
		{name: "missing event", entry: Entry{ID: "x", Type: TypeInfo}},
		{name: "unknown type", entry: Entry{ID: "x", Event: EventDoorOpened, Type: "warning"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Record(ctx, tt.entry)
			if !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("Record() error = %v, want ErrInvalidEntry", err)
			}
		})
	}

	if err := NewSQLiteRepository(db.DB, "").Record(ctx, testEntry("x", EventDoorOpened, time.Now())); !errors.Is(err, ErrNodeRequired) {
		t.Errorf("Record() without node error = %v, want ErrNodeRequired", err)
	}
}

func TestSQLiteRepository_DuplicateID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db.DB, "hallway")
	ctx := context.Background()

	e := testEntry("dup", EventDoorOpened, time.Now())
	if err := repo.Record(ctx, e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := repo.Record(ctx, e); err == nil {
		t.Error("Record() duplicate expected error, got nil")
	}
}

func TestSQLiteRepository_Prune(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db.DB, "hallway")
	other := NewSQLiteRepository(db.DB, "garage")
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		e := testEntry(string(rune('a'+i)), EventDoorOpened, base.Add(time.Duration(i)*time.Minute))
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if err := other.Record(ctx, testEntry("g1", EventDoorOpened, base)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	n, err := repo.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Prune() removed %d rows, want 3", n)
	}

	got, _ := repo.Recent(ctx, 0)
	if len(got) != 2 || got[0].ID != "e" || got[1].ID != "d" {
		t.Errorf("after Prune() entries = %v, want [e d]", got)
	}

	kept, _ := other.Recent(ctx, 0)
	if len(kept) != 1 {
		t.Errorf("Prune() touched another node: %d entries left, want 1", len(kept))
	}

	if _, err := repo.Prune(ctx, -1); err == nil {
		t.Error("Prune(-1) expected error, got nil")
	}
}
