/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timetable

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads and validates a schedule document. Any failure here is fatal to
// the caller: the resolver must never run against a partial schedule.
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}

	// A missing weekday key must be rejected, and encoding/json leaves absent
	// keys as nil slices, so presence is checked on the raw object first.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}
	for _, day := range Weekdays {
		if _, ok := keys[string(day)]; !ok {
			return nil, fmt.Errorf("schedule is missing weekday %q", day)
		}
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}

	if err := Validate(&doc); err != nil {
		return nil, err
	}

	return NewStore(doc), nil
}

// Save writes a schedule document, pretty printed for hand editing.
func Save(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write schedule: %w", err)
	}
	return nil
}

// Validate checks structural invariants: clock times in range, slots sorted
// ascending by start, and no overlapping windows within a day. Gap
// placeholders participate like any other slot; only resolution skips them.
func Validate(doc *Document) error {
	for _, day := range Weekdays {
		slots := doc.Day(day)
		for i, slot := range slots {
			if err := checkClockTime(slot.Start); err != nil {
				return fmt.Errorf("%s slot %d (%s): start: %w", day, i, slot.Subject, err)
			}
			if err := checkClockTime(slot.End); err != nil {
				return fmt.Errorf("%s slot %d (%s): end: %w", day, i, slot.Subject, err)
			}
			if slot.End.Minutes() < slot.Start.Minutes() {
				return fmt.Errorf("%s slot %d (%s): ends %s before it starts %s", day, i, slot.Subject, slot.End, slot.Start)
			}
			switch slot.Cycle {
			case CycleNone, CycleEven, CycleOdd:
			default:
				return fmt.Errorf("%s slot %d (%s): unknown two week cycle %q", day, i, slot.Subject, slot.Cycle)
			}
			if i == 0 {
				continue
			}
			prev := slots[i-1]
			if slot.Start.Minutes() < prev.Start.Minutes() {
				return fmt.Errorf("%s slot %d (%s) starts before the previous slot", day, i, slot.Subject)
			}
			if slot.Start.Minutes() < prev.End.Minutes() {
				return fmt.Errorf("%s slots %d and %d overlap between %s and %s", day, i-1, i, slot.Start, prev.End)
			}
		}
	}

	for i, exc := range doc.Exceptions {
		if exc.Day.Index() < 0 {
			return fmt.Errorf("exception %d: unknown day %q", i, exc.Day)
		}
		if exc.Subject == "" {
			return fmt.Errorf("exception %d: empty subject", i)
		}
	}

	return nil
}

func checkClockTime(c ClockTime) error {
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("clock time %d:%d out of range", c.Hour, c.Minute)
	}
	return nil
}
