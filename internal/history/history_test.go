/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package history

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/schulfunk/schulfunk/internal/config"
	"github.com/schulfunk/schulfunk/internal/timetable"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Connect(&config.Config{
		DBBackend: config.DatabaseSQLite,
		DBDSN:     filepath.Join(t.TempDir(), "history.db"),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testDocument() *timetable.Document {
	return &timetable.Document{
		Monday: []timetable.LessonSlot{
			{
				Subject: "Mathematik LK 2",
				Room:    "A113",
				Start:   timetable.ClockTime{Hour: 7, Minute: 50},
				End:     timetable.ClockTime{Hour: 9, Minute: 20},
			},
			{
				Subject: timetable.SubjectNone,
				Start:   timetable.ClockTime{Hour: 9, Minute: 40},
				End:     timetable.ClockTime{Hour: 10, Minute: 25},
			},
		},
		Exceptions: []timetable.ExceptionRecord{
			{Day: timetable.Monday, Subject: "Mathematik LK 2", Cancelled: true},
		},
	}
}

func TestRecord(t *testing.T) {
	store := testStore(t)

	snap, err := store.Record(context.Background(), "schulmanager", testDocument())
	if err != nil {
		t.Fatal(err)
	}
	if snap.ID == "" {
		t.Error("missing snapshot id")
	}
	if snap.Source != "schulmanager" {
		t.Errorf("got source %q", snap.Source)
	}
	// Gap placeholders do not count as lessons.
	if snap.LessonCount != 1 || snap.ExceptionCount != 1 {
		t.Errorf("got counts %d/%d", snap.LessonCount, snap.ExceptionCount)
	}

	var doc timetable.Document
	if err := json.Unmarshal(snap.Document, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Monday) != 2 || doc.Monday[0].Subject != "Mathematik LK 2" {
		t.Errorf("stored document mangled: %+v", doc.Monday)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for _, source := range []string{"first", "second", "third"} {
		if _, err := store.Record(ctx, source, testDocument()); err != nil {
			t.Fatal(err)
		}
	}

	snaps, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots", len(snaps))
	}
}

func TestRecentDefaultLimit(t *testing.T) {
	store := testStore(t)

	snaps, err := store.Recent(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 0 {
		t.Errorf("fresh store should have no snapshots, got %d", len(snaps))
	}
}
