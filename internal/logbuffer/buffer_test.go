/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logbuffer

import (
	"fmt"
	"testing"
)

func TestBufferEviction(t *testing.T) {
	buf := New(3)
	for i := 0; i < 5; i++ {
		buf.Add(LogEntry{Message: fmt.Sprintf("msg-%d", i)})
	}

	all := buf.All()
	if len(all) != 3 {
		t.Fatalf("got %d entries", len(all))
	}
	// Oldest two evicted; chronological order preserved.
	for i, want := range []string{"msg-2", "msg-3", "msg-4"} {
		if all[i].Message != want {
			t.Errorf("entry %d: got %q, want %q", i, all[i].Message, want)
		}
	}
}

func TestRecentNewestFirst(t *testing.T) {
	buf := New(10)
	for i := 0; i < 4; i++ {
		buf.Add(LogEntry{Message: fmt.Sprintf("msg-%d", i)})
	}

	recent := buf.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("got %d entries", len(recent))
	}
	if recent[0].Message != "msg-3" || recent[1].Message != "msg-2" {
		t.Errorf("got %q, %q", recent[0].Message, recent[1].Message)
	}
}

func TestWriterParsesZerologLine(t *testing.T) {
	buf := New(10)
	w := NewWriter(buf)

	line := `{"level":"info","component":"poller","interval":15000,"time":1768990000,"message":"poller started"}`
	if _, err := w.Write([]byte(line + "\n")); err != nil {
		t.Fatal(err)
	}

	all := buf.All()
	if len(all) != 1 {
		t.Fatalf("got %d entries", len(all))
	}
	entry := all[0]
	if entry.Level != "info" || entry.Message != "poller started" || entry.Component != "poller" {
		t.Errorf("got %+v", entry)
	}
	if entry.Timestamp.Unix() != 1768990000 {
		t.Errorf("got timestamp %v", entry.Timestamp)
	}
	if entry.Fields["interval"] != float64(15000) {
		t.Errorf("got fields %v", entry.Fields)
	}
}

func TestWriterDropsGarbage(t *testing.T) {
	buf := New(10)
	w := NewWriter(buf)

	if _, err := w.Write([]byte("not json at all")); err != nil {
		t.Fatal(err)
	}
	if len(buf.All()) != 0 {
		t.Error("garbage line should not be buffered")
	}
}
