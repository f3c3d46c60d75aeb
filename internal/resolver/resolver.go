/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package resolver answers two questions against the weekly timetable: what
// occurrence is active right now, and which eligible slot comes next. Both
// resolvers are pure functions over (now, store); the store is never
// modified, substitutions produce derived slot copies.
package resolver

import (
	"time"

	"github.com/schulfunk/schulfunk/internal/timetable"
)

// Kind tags the outcome of one resolution pass.
type Kind int

const (
	// KindNoSchedule means now falls on a weekend; nothing is resolved and
	// no presence update is emitted.
	KindNoSchedule Kind = iota
	// KindInLesson means a base occurrence contains now, possibly with a
	// substitution applied.
	KindInLesson
	// KindCancelled means the base occurrence is struck out by a cancelled
	// exception; the slot keeps its original time window.
	KindCancelled
	// KindBreak means no occurrence contains now but a later slot exists
	// this week. Current returns it with Next unset; the caller fills Next
	// from Lookahead or demotes the activity to KindFreeTime.
	KindBreak
	// KindFreeTime means no eligible slot remains through Friday.
	KindFreeTime
)

func (k Kind) String() string {
	switch k {
	case KindNoSchedule:
		return "no_schedule"
	case KindInLesson:
		return "in_lesson"
	case KindCancelled:
		return "cancelled"
	case KindBreak:
		return "break"
	case KindFreeTime:
		return "free_time"
	default:
		return "unknown"
	}
}

// Upcoming is a lookahead hit: the next eligible slot and how many days past
// now's date it falls.
type Upcoming struct {
	Day       timetable.Weekday
	DaysAhead int
	Slot      timetable.LessonSlot
}

// Activity is the tagged result of one resolution pass.
type Activity struct {
	Kind Kind
	// Day and Slot are set for KindInLesson and KindCancelled.
	Day  timetable.Weekday
	Slot timetable.LessonSlot
	// Next is set for KindBreak once the lookahead has run.
	Next *Upcoming
}

// Current resolves the occurrence active at now. It returns KindNoSchedule on
// weekends and KindBreak (with Next unset) when no base occurrence contains
// now; break versus free time is decided by the caller because the break end
// depends on the lookahead, which is out of this resolver's scope.
func Current(now time.Time, store *timetable.Store) Activity {
	day, ok := timetable.WeekdayOf(now.Weekday())
	if !ok {
		return Activity{Kind: KindNoSchedule}
	}

	minute := now.Hour()*60 + now.Minute()
	_, isoWeek := now.ISOWeek()

	for _, slot := range store.Day(day) {
		if !eligible(slot, isoWeek) {
			// Skipped entirely: an ineligible slot is neither current nor a
			// gap.
			continue
		}
		if minute < slot.Start.Minutes() || minute > slot.End.Minutes() {
			continue
		}
		return applyException(day, slot, store)
	}

	return Activity{Kind: KindBreak}
}

// Lookahead finds the first eligible slot starting at or after now's
// minute-of-day, scanning the current weekday and then each later weekday
// through Friday. There is no wraparound: after Friday's last slot the week
// is over. Exceptions are deliberately not applied; a cancelled upcoming
// lesson still bounds the break before it.
func Lookahead(now time.Time, store *timetable.Store) (Upcoming, bool) {
	day, ok := timetable.WeekdayOf(now.Weekday())
	if !ok {
		return Upcoming{}, false
	}

	minute := now.Hour()*60 + now.Minute()
	_, isoWeek := now.ISOWeek()

	start := day.Index()
	for offset, candidate := range timetable.Weekdays[start:] {
		for _, slot := range store.Day(candidate) {
			if !eligible(slot, isoWeek) {
				continue
			}
			if offset == 0 && slot.Start.Minutes() < minute {
				continue
			}
			return Upcoming{Day: candidate, DaysAhead: offset, Slot: slot}, true
		}
	}

	return Upcoming{}, false
}

// eligible applies the shared slot filter: NONE placeholders never resolve,
// and a two week cycle must match the ISO week parity of now.
func eligible(slot timetable.LessonSlot, isoWeek int) bool {
	return !slot.IsGap() && slot.OccursIn(isoWeek)
}

// applyException layers the first matching exception record over the base
// occurrence. At most one record applies; later records for the same
// (day, subject) pair are ignored regardless of content.
func applyException(day timetable.Weekday, base timetable.LessonSlot, store *timetable.Store) Activity {
	for _, exc := range store.Exceptions() {
		if exc.Day != day || exc.Subject != base.Subject {
			continue
		}
		if exc.Cancelled {
			// The slot keeps its original window; the projector turns it
			// into a cancellation status.
			return Activity{Kind: KindCancelled, Day: day, Slot: base}
		}
		derived := base
		derived.Room = exc.Room
		derived.Teacher = exc.Teacher
		derived.Double = exc.Double
		return Activity{Kind: KindInLesson, Day: day, Slot: derived}
	}
	return Activity{Kind: KindInLesson, Day: day, Slot: base}
}
