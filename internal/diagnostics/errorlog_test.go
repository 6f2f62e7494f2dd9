package diagnostics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-dmx/migrations"
)

func openErrorDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{Path: database.MemoryPath, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return db
}

func TestErrorLogInsertAndRecent(t *testing.T) {
	db := openErrorDB(t)
	log := NewErrorLog(db.DB, nil)
	defer log.Close() //nolint:errcheck // Test cleanup
	ctx := context.Background()

	errs := []NetworkError{
		{ID: "a", Timestamp: epoch, Type: ErrorConnection, Message: "relay closed"},
		{ID: "b", Timestamp: epoch.Add(time.Second), Type: ErrorUniverse, Message: "unknown universe", Universe: UniverseRef(70)},
		{ID: "c", Timestamp: epoch.Add(2 * time.Second), Type: ErrorPacket, Message: "bad json"},
	}
	for _, e := range errs {
		if err := log.Insert(ctx, e); err != nil {
			t.Fatalf("Insert(%s) error = %v", e.ID, err)
		}
	}

	got, err := log.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent() len = %d, want 2", len(got))
	}
	if got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("Recent() order = %s,%s, want c,b", got[0].ID, got[1].ID)
	}
	if got[1].Universe == nil || *got[1].Universe != 70 {
		t.Errorf("universe = %v, want 70", got[1].Universe)
	}
	if got[0].Universe != nil {
		t.Errorf("universe = %v, want nil", *got[0].Universe)
	}
	if !got[1].Timestamp.Equal(errs[1].Timestamp) {
		t.Errorf("timestamp = %v, want %v", got[1].Timestamp, errs[1].Timestamp)
	}
	if got[0].Type != ErrorPacket {
		t.Errorf("type = %q, want packet", got[0].Type)
	}
}

func TestErrorLogDuplicateID(t *testing.T) {
	db := openErrorDB(t)
	log := NewErrorLog(db.DB, nil)
	defer log.Close() //nolint:errcheck // Test cleanup
	ctx := context.Background()

	e := NetworkError{ID: "dup", Timestamp: epoch, Type: ErrorPacket, Message: "x"}
	if err := log.Insert(ctx, e); err != nil {
		t.Fatalf("first Insert() error = %v", err)
	}
	if err := log.Insert(ctx, e); err == nil {
		t.Error("second Insert() error = nil, want primary key violation")
	}
}

func TestErrorLogWriteErrorFlushesOnClose(t *testing.T) {
	db := openErrorDB(t)
	log := NewErrorLog(db.DB, nil)

	for i := range 20 {
		log.WriteError(NetworkError{
			ID:        fmt.Sprintf("e%02d", i),
			Timestamp: epoch.Add(time.Duration(i) * time.Millisecond),
			Type:      ErrorPacket,
			Message:   "decode failed",
		})
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got, err := log.Recent(context.Background(), 100)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got)+int(log.Dropped()) != 20 {
		t.Errorf("persisted %d + dropped %d, want 20", len(got), log.Dropped())
	}

	// Writes after Close are ignored.
	log.WriteError(NetworkError{ID: "late", Timestamp: epoch, Type: ErrorPacket, Message: "x"})
	if err := log.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestErrorLogPrune(t *testing.T) {
	db := openErrorDB(t)
	log := NewErrorLog(db.DB, nil)
	defer log.Close() //nolint:errcheck // Test cleanup
	ctx := context.Background()

	for i := range 5 {
		e := NetworkError{
			ID:        fmt.Sprintf("e%d", i),
			Timestamp: epoch.Add(time.Duration(i) * time.Hour),
			Type:      ErrorConnection,
			Message:   "down",
		}
		if err := log.Insert(ctx, e); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	n, err := log.Prune(ctx, epoch.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Prune() removed %d, want 3", n)
	}

	left, err := log.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(left) != 2 {
		t.Errorf("remaining = %d, want 2", len(left))
	}
}

func TestErrorLogAsAggregatorSink(t *testing.T) {
	db := openErrorDB(t)
	log := NewErrorLog(db.DB, nil)
	agg, _, _ := newTestAggregator()
	agg.AddErrorSink(log)

	agg.RecordError(NetworkError{Type: ErrorConnection, Message: "relay closed"})
	if err := log.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got, err := log.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 1 || got[0].Message != "relay closed" {
		t.Fatalf("Recent() = %+v, want the recorded error", got)
	}
	if got[0].ID != agg.ErrorHistory()[0].ID {
		t.Error("persisted ID differs from in-memory history")
	}
}
