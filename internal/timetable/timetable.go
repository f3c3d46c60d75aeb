/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package timetable holds the immutable weekly schedule used by the
// resolvers. A Store is built once at startup from the schedule document and
// is never written afterwards, so it is safe to read from every poll tick
// without locking.
package timetable

import (
	"encoding/json"
	"fmt"
	"time"
)

// SubjectNone marks a deliberate gap in the timetable. Slots carrying it are
// placeholders the scraper inserts between non-adjacent periods; resolution
// skips them entirely.
const SubjectNone = "NONE"

// Cycle restricts a slot to alternate ISO weeks.
type Cycle string

const (
	CycleNone Cycle = ""
	CycleEven Cycle = "even"
	CycleOdd  Cycle = "odd"
)

// Weekday names a school day. Only Monday through Friday exist in a schedule
// document.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
)

// Weekdays lists the school days in schedule order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// WeekdayOf maps a calendar weekday onto a schedule weekday. ok is false on
// Saturday and Sunday.
func WeekdayOf(day time.Weekday) (Weekday, bool) {
	switch day {
	case time.Monday:
		return Monday, true
	case time.Tuesday:
		return Tuesday, true
	case time.Wednesday:
		return Wednesday, true
	case time.Thursday:
		return Thursday, true
	case time.Friday:
		return Friday, true
	default:
		return "", false
	}
}

// Index returns the position of the weekday in Monday..Friday order.
func (w Weekday) Index() int {
	for i, day := range Weekdays {
		if day == w {
			return i
		}
	}
	return -1
}

// ClockTime is a wall-clock instant with minute granularity. The schedule
// document encodes it as a two element array [hour, minute].
type ClockTime struct {
	Hour   int
	Minute int
}

// Minutes returns the minute-of-day value.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// MarshalJSON encodes the clock time as [hour, minute].
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.Hour, c.Minute})
}

// UnmarshalJSON decodes a [hour, minute] pair.
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("clock time must be a [hour, minute] pair, got %d elements", len(pair))
	}
	c.Hour = pair[0]
	c.Minute = pair[1]
	return nil
}

// LessonSlot is one entry of a weekday column.
type LessonSlot struct {
	Subject string    `json:"subject"`
	Room    string    `json:"room,omitempty"`
	Teacher string    `json:"teacher,omitempty"`
	Double  bool      `json:"double,omitempty"`
	Start   ClockTime `json:"start"`
	End     ClockTime `json:"end"`
	Cycle   Cycle     `json:"two_week_cycle,omitempty"`
}

// IsGap reports whether the slot is a NONE placeholder.
func (s LessonSlot) IsGap() bool {
	return s.Subject == SubjectNone
}

// OccursIn reports whether the slot's two week cycle admits the given ISO
// week number. Slots without a cycle occur every week.
func (s LessonSlot) OccursIn(isoWeek int) bool {
	switch s.Cycle {
	case CycleEven:
		return isoWeek%2 == 0
	case CycleOdd:
		return isoWeek%2 != 0
	default:
		return true
	}
}

// ExceptionRecord overrides one weekday+subject occurrence: either a
// cancellation or a room/teacher substitution.
type ExceptionRecord struct {
	Day       Weekday `json:"day"`
	Subject   string  `json:"subject"`
	Cancelled bool    `json:"cancelled"`
	Room      string  `json:"room,omitempty"`
	Teacher   string  `json:"teacher,omitempty"`
	Double    bool    `json:"double,omitempty"`
}

// Document is the on-disk schedule format produced by the sync command and
// consumed at startup.
type Document struct {
	Monday     []LessonSlot      `json:"monday"`
	Tuesday    []LessonSlot      `json:"tuesday"`
	Wednesday  []LessonSlot      `json:"wednesday"`
	Thursday   []LessonSlot      `json:"thursday"`
	Friday     []LessonSlot      `json:"friday"`
	Exceptions []ExceptionRecord `json:"exceptions"`
}

// Day returns the slot list for a weekday.
func (d *Document) Day(w Weekday) []LessonSlot {
	switch w {
	case Monday:
		return d.Monday
	case Tuesday:
		return d.Tuesday
	case Wednesday:
		return d.Wednesday
	case Thursday:
		return d.Thursday
	case Friday:
		return d.Friday
	default:
		return nil
	}
}

// Store is the read-only in-memory schedule. Resolvers receive it by value
// reference and must never mutate the slots it holds; substitutions are
// applied on derived copies.
type Store struct {
	doc Document
}

// NewStore wraps a validated document.
func NewStore(doc Document) *Store {
	return &Store{doc: doc}
}

// Day returns the slots for a weekday in stored order.
func (s *Store) Day(w Weekday) []LessonSlot {
	return s.doc.Day(w)
}

// Exceptions returns the exception records in stored order.
func (s *Store) Exceptions() []ExceptionRecord {
	return s.doc.Exceptions
}

// Document returns the underlying document, for the status API.
func (s *Store) Document() Document {
	return s.doc
}
