/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schulmanager pulls the weekly plan out of the Schulmanager web UI
// and normalizes it into a schedule document.
package schulmanager

import (
	"fmt"
	"strings"

	"github.com/schulfunk/schulfunk/internal/timetable"
)

// bellTable maps period index (0-based) to the school's bell times. Twelve
// periods cover the full teaching day including the late afternoon block.
var bellTable = [12][2]timetable.ClockTime{
	{{Hour: 7, Minute: 50}, {Hour: 8, Minute: 35}},
	{{Hour: 8, Minute: 35}, {Hour: 9, Minute: 20}},
	{{Hour: 9, Minute: 40}, {Hour: 10, Minute: 25}},
	{{Hour: 10, Minute: 30}, {Hour: 11, Minute: 15}},
	{{Hour: 11, Minute: 35}, {Hour: 12, Minute: 20}},
	{{Hour: 12, Minute: 20}, {Hour: 13, Minute: 5}},
	{{Hour: 13, Minute: 30}, {Hour: 14, Minute: 15}},
	{{Hour: 14, Minute: 20}, {Hour: 15, Minute: 5}},
	{{Hour: 15, Minute: 10}, {Hour: 15, Minute: 55}},
	{{Hour: 15, Minute: 55}, {Hour: 16, Minute: 40}},
	{{Hour: 16, Minute: 40}, {Hour: 17, Minute: 25}},
	{{Hour: 17, Minute: 25}, {Hour: 18, Minute: 10}},
}

// PeriodCount is the number of bell periods in a school day.
const PeriodCount = len(bellTable)

// RawCell is one populated cell of the scraped plan grid before
// normalization. Period and Day are 0-based grid coordinates.
type RawCell struct {
	Period    int
	Day       int
	Subject   string
	Room      string
	Teacher   string
	Cancelled bool
	Changed   bool
}

// entry is a lesson still carrying its bell period range, needed for double
// merging and gap detection.
type entry struct {
	slot        timetable.LessonSlot
	firstPeriod int
	lastPeriod  int
}

// BuildDocument turns scraped grid cells into a schedule document: subjects
// are expanded through the abbreviation map, cancelled cells become
// exception records, consecutive same-subject periods merge into doubles,
// and skipped periods between lessons become placeholder slots.
func BuildDocument(cells []RawCell, subjects map[string]string) (*timetable.Document, error) {
	days := make(map[timetable.Weekday][]entry)
	var exceptions []timetable.ExceptionRecord

	for _, cell := range cells {
		if cell.Period < 0 || cell.Period >= PeriodCount {
			return nil, fmt.Errorf("cell period %d out of range", cell.Period)
		}
		if cell.Day < 0 || cell.Day >= len(timetable.Weekdays) {
			return nil, fmt.Errorf("cell day %d out of range", cell.Day)
		}

		subject := expandSubject(cell.Subject, subjects)
		if subject == "" {
			continue
		}
		day := timetable.Weekdays[cell.Day]

		if cell.Cancelled {
			exceptions = append(exceptions, timetable.ExceptionRecord{
				Day:       day,
				Subject:   subject,
				Room:      cell.Room,
				Teacher:   cell.Teacher,
				Cancelled: true,
			})
		}

		days[day] = append(days[day], entry{
			slot: timetable.LessonSlot{
				Subject: subject,
				Room:    cell.Room,
				Teacher: cell.Teacher,
				Start:   bellTable[cell.Period][0],
				End:     bellTable[cell.Period][1],
			},
			firstPeriod: cell.Period,
			lastPeriod:  cell.Period,
		})
	}

	doc := &timetable.Document{Exceptions: exceptions}
	for _, day := range timetable.Weekdays {
		slots := fillGaps(mergeDoubles(days[day]))
		switch day {
		case timetable.Monday:
			doc.Monday = slots
		case timetable.Tuesday:
			doc.Tuesday = slots
		case timetable.Wednesday:
			doc.Wednesday = slots
		case timetable.Thursday:
			doc.Thursday = slots
		case timetable.Friday:
			doc.Friday = slots
		}
	}

	if err := timetable.Validate(doc); err != nil {
		return nil, fmt.Errorf("scraped schedule invalid: %w", err)
	}
	return doc, nil
}

// expandSubject resolves a plan abbreviation to its full subject name. The
// plan sometimes renders double spaces inside abbreviations.
func expandSubject(raw string, subjects map[string]string) string {
	key := strings.TrimSpace(strings.ReplaceAll(raw, "  ", " "))
	if full, ok := subjects[key]; ok {
		return full
	}
	return key
}

// mergeDoubles collapses runs of consecutive same-subject periods into a
// single slot spanning the run. Entries must be in period order, which the
// grid walk guarantees.
func mergeDoubles(entries []entry) []entry {
	var merged []entry
	for i := 0; i < len(entries); i++ {
		current := entries[i]
		for i+1 < len(entries) &&
			entries[i+1].slot.Subject == current.slot.Subject &&
			entries[i+1].firstPeriod == entries[i].lastPeriod+1 {
			current.slot.Double = true
			current.slot.End = entries[i+1].slot.End
			current.lastPeriod = entries[i+1].lastPeriod
			i++
		}
		merged = append(merged, current)
	}
	return merged
}

// fillGaps inserts a placeholder slot for each skipped bell period between
// two lessons, so the resolver can tell a scheduled gap from time after
// school.
func fillGaps(entries []entry) []timetable.LessonSlot {
	var slots []timetable.LessonSlot
	for i, e := range entries {
		slots = append(slots, e.slot)
		if i+1 >= len(entries) {
			break
		}
		for p := e.lastPeriod + 1; p < entries[i+1].firstPeriod; p++ {
			slots = append(slots, timetable.LessonSlot{
				Subject: timetable.SubjectNone,
				Start:   bellTable[p][0],
				End:     bellTable[p][1],
			})
		}
	}
	return slots
}
