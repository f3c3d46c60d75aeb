/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package resolver

import (
	"testing"
	"time"

	"github.com/schulfunk/schulfunk/internal/timetable"
)

// The test week: Monday 2026-01-05 falls in ISO week 2 (even), Monday
// 2026-01-12 in ISO week 3 (odd).
func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.January, day, hour, minute, 0, 0, time.Local)
}

func slot(subject, room, teacher string, startH, startM, endH, endM int) timetable.LessonSlot {
	return timetable.LessonSlot{
		Subject: subject,
		Room:    room,
		Teacher: teacher,
		Start:   timetable.ClockTime{Hour: startH, Minute: startM},
		End:     timetable.ClockTime{Hour: endH, Minute: endM},
	}
}

func gap(startH, startM, endH, endM int) timetable.LessonSlot {
	return timetable.LessonSlot{
		Subject: timetable.SubjectNone,
		Start:   timetable.ClockTime{Hour: startH, Minute: startM},
		End:     timetable.ClockTime{Hour: endH, Minute: endM},
	}
}

func testStore() *timetable.Store {
	return timetable.NewStore(timetable.Document{
		Monday: []timetable.LessonSlot{
			slot("Mathematik LK 2", "A113", "Fr. Weber", 7, 50, 9, 20),
			gap(9, 40, 10, 25),
			slot("Englisch GK 3", "B204", "Hr. Krause", 10, 30, 11, 15),
		},
		Tuesday: []timetable.LessonSlot{
			slot("Physik LK 1", "C101", "Hr. Brandt", 9, 40, 10, 25),
		},
		Friday: []timetable.LessonSlot{
			slot("Sport GK 5", "Halle 2", "Fr. Vogt", 13, 30, 14, 15),
		},
	})
}

func TestCurrentWeekend(t *testing.T) {
	store := testStore()
	for _, day := range []int{10, 11} { // Saturday, Sunday
		act := Current(at(day, 10, 0), store)
		if act.Kind != KindNoSchedule {
			t.Errorf("day %d: got %v, want no_schedule", day, act.Kind)
		}
	}
}

func TestCurrentInLesson(t *testing.T) {
	act := Current(at(5, 8, 30), testStore())
	if act.Kind != KindInLesson {
		t.Fatalf("got %v, want in_lesson", act.Kind)
	}
	if act.Slot.Subject != "Mathematik LK 2" {
		t.Errorf("got subject %q", act.Slot.Subject)
	}
	if act.Day != timetable.Monday {
		t.Errorf("got day %q", act.Day)
	}
}

func TestCurrentWindowInclusive(t *testing.T) {
	store := testStore()
	cases := []struct {
		name string
		now  time.Time
		want Kind
	}{
		{"exactly at start", at(5, 7, 50), KindInLesson},
		{"exactly at end", at(5, 9, 20), KindInLesson},
		{"minute before start", at(5, 7, 49), KindBreak},
		{"minute after end", at(5, 9, 21), KindBreak},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			act := Current(tc.now, store)
			if act.Kind != tc.want {
				t.Errorf("got %v, want %v", act.Kind, tc.want)
			}
		})
	}
}

func TestCurrentSkipsGapSlots(t *testing.T) {
	// 10:00 falls inside the Monday NONE placeholder.
	act := Current(at(5, 10, 0), testStore())
	if act.Kind != KindBreak {
		t.Fatalf("got %v, want break", act.Kind)
	}
	if act.Next != nil {
		t.Error("Next should be unset until the lookahead runs")
	}
}

func TestCurrentTwoWeekCycle(t *testing.T) {
	evenSlot := slot("Informatik GK 2", "D12", "Hr. Lange", 9, 40, 10, 25)
	evenSlot.Cycle = timetable.CycleEven
	oddSlot := slot("Religion GK 1", "D13", "Fr. Adam", 9, 40, 10, 25)
	oddSlot.Cycle = timetable.CycleOdd
	store := timetable.NewStore(timetable.Document{
		Monday:  []timetable.LessonSlot{evenSlot},
		Tuesday: []timetable.LessonSlot{oddSlot},
	})

	// ISO week 2: the even slot occurs.
	act := Current(at(5, 10, 0), store)
	if act.Kind != KindInLesson || act.Slot.Subject != "Informatik GK 2" {
		t.Errorf("even week: got %v %q", act.Kind, act.Slot.Subject)
	}
	// ISO week 3: it does not.
	act = Current(at(12, 10, 0), store)
	if act.Kind != KindBreak {
		t.Errorf("odd week: got %v, want break", act.Kind)
	}
	// Odd-cycle slot on Tuesday of ISO week 3.
	act = Current(at(13, 10, 0), store)
	if act.Kind != KindInLesson || act.Slot.Subject != "Religion GK 1" {
		t.Errorf("odd week tuesday: got %v %q", act.Kind, act.Slot.Subject)
	}
}

func TestCurrentCancelledException(t *testing.T) {
	doc := testStore().Document()
	doc.Exceptions = []timetable.ExceptionRecord{
		{Day: timetable.Monday, Subject: "Mathematik LK 2", Cancelled: true},
	}
	store := timetable.NewStore(doc)

	act := Current(at(5, 8, 30), store)
	if act.Kind != KindCancelled {
		t.Fatalf("got %v, want cancelled", act.Kind)
	}
	// The slot keeps its original window and identity.
	if act.Slot.Subject != "Mathematik LK 2" || act.Slot.Start.Minutes() != 7*60+50 {
		t.Errorf("cancelled slot altered: %+v", act.Slot)
	}
}

func TestCurrentSubstitutionException(t *testing.T) {
	doc := testStore().Document()
	doc.Exceptions = []timetable.ExceptionRecord{
		{Day: timetable.Monday, Subject: "Mathematik LK 2", Room: "E301", Teacher: "Hr. Sommer"},
	}
	store := timetable.NewStore(doc)

	act := Current(at(5, 8, 30), store)
	if act.Kind != KindInLesson {
		t.Fatalf("got %v, want in_lesson", act.Kind)
	}
	if act.Slot.Room != "E301" || act.Slot.Teacher != "Hr. Sommer" {
		t.Errorf("substitution not applied: %+v", act.Slot)
	}
	if act.Slot.Subject != "Mathematik LK 2" || act.Slot.End.Minutes() != 9*60+20 {
		t.Errorf("substitution changed identity or window: %+v", act.Slot)
	}

	// The stored slot must be untouched.
	base := store.Day(timetable.Monday)[0]
	if base.Room != "A113" || base.Teacher != "Fr. Weber" {
		t.Errorf("store mutated: %+v", base)
	}
}

func TestCurrentFirstExceptionWins(t *testing.T) {
	doc := testStore().Document()
	doc.Exceptions = []timetable.ExceptionRecord{
		{Day: timetable.Monday, Subject: "Mathematik LK 2", Room: "E301", Teacher: "Hr. Sommer"},
		{Day: timetable.Monday, Subject: "Mathematik LK 2", Cancelled: true},
	}
	store := timetable.NewStore(doc)

	act := Current(at(5, 8, 30), store)
	if act.Kind != KindInLesson || act.Slot.Room != "E301" {
		t.Errorf("later duplicate applied: %v %+v", act.Kind, act.Slot)
	}
}

func TestCurrentExceptionOtherDayIgnored(t *testing.T) {
	doc := testStore().Document()
	doc.Exceptions = []timetable.ExceptionRecord{
		{Day: timetable.Tuesday, Subject: "Mathematik LK 2", Cancelled: true},
	}
	store := timetable.NewStore(doc)

	act := Current(at(5, 8, 30), store)
	if act.Kind != KindInLesson {
		t.Errorf("got %v, want in_lesson", act.Kind)
	}
}

func TestLookaheadSameDay(t *testing.T) {
	next, ok := Lookahead(at(5, 9, 30), testStore())
	if !ok {
		t.Fatal("expected a hit")
	}
	if next.Day != timetable.Monday || next.DaysAhead != 0 {
		t.Errorf("got day %q ahead %d", next.Day, next.DaysAhead)
	}
	if next.Slot.Subject != "Englisch GK 3" {
		t.Errorf("got subject %q", next.Slot.Subject)
	}
}

func TestLookaheadSlotStartingNowCounts(t *testing.T) {
	next, ok := Lookahead(at(5, 10, 30), testStore())
	if !ok || next.Slot.Subject != "Englisch GK 3" {
		t.Errorf("slot starting exactly at now should match, got ok=%v %+v", ok, next)
	}
}

func TestLookaheadNextDay(t *testing.T) {
	// Monday after the last lesson: Tuesday's physics is next.
	next, ok := Lookahead(at(5, 12, 0), testStore())
	if !ok {
		t.Fatal("expected a hit")
	}
	if next.Day != timetable.Tuesday || next.DaysAhead != 1 {
		t.Errorf("got day %q ahead %d", next.Day, next.DaysAhead)
	}
}

func TestLookaheadSkipsEmptyDays(t *testing.T) {
	// Tuesday after physics: Wednesday and Thursday are empty, Friday's
	// sport is next, three days out.
	next, ok := Lookahead(at(6, 11, 0), testStore())
	if !ok {
		t.Fatal("expected a hit")
	}
	if next.Day != timetable.Friday || next.DaysAhead != 3 {
		t.Errorf("got day %q ahead %d", next.Day, next.DaysAhead)
	}
}

func TestLookaheadNoWraparound(t *testing.T) {
	// Friday after the last lesson: the week is over.
	if next, ok := Lookahead(at(9, 15, 0), testStore()); ok {
		t.Errorf("expected no hit, got %+v", next)
	}
}

func TestLookaheadWeekend(t *testing.T) {
	if _, ok := Lookahead(at(10, 9, 0), testStore()); ok {
		t.Error("weekend lookahead should miss")
	}
}

func TestLookaheadIgnoresExceptions(t *testing.T) {
	doc := testStore().Document()
	doc.Exceptions = []timetable.ExceptionRecord{
		{Day: timetable.Monday, Subject: "Englisch GK 3", Cancelled: true},
	}
	store := timetable.NewStore(doc)

	// The cancelled English lesson still bounds the break before it.
	next, ok := Lookahead(at(5, 9, 30), store)
	if !ok || next.Slot.Subject != "Englisch GK 3" {
		t.Errorf("got ok=%v %+v", ok, next)
	}
}

func TestLookaheadSkipsGapAndCycle(t *testing.T) {
	oddSlot := slot("Religion GK 1", "D13", "Fr. Adam", 9, 40, 10, 25)
	oddSlot.Cycle = timetable.CycleOdd
	store := timetable.NewStore(timetable.Document{
		Monday: []timetable.LessonSlot{
			gap(7, 50, 8, 35),
			oddSlot,
			slot("Deutsch GK 4", "B2", "Fr. Roth", 11, 35, 12, 20),
		},
	})

	// ISO week 2 is even: the gap and the odd-cycle slot are both skipped.
	next, ok := Lookahead(at(5, 7, 0), store)
	if !ok || next.Slot.Subject != "Deutsch GK 4" {
		t.Errorf("got ok=%v %+v", ok, next)
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindNoSchedule: "no_schedule",
		KindInLesson:   "in_lesson",
		KindCancelled:  "cancelled",
		KindBreak:      "break",
		KindFreeTime:   "free_time",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("%d: got %q, want %q", kind, got, want)
		}
	}
}
