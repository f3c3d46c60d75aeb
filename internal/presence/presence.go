/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package presence turns resolved activities into the record pushed to the
// status sink.
package presence

import (
	"context"
	"time"

	"github.com/schulfunk/schulfunk/internal/resolver"
	"github.com/schulfunk/schulfunk/internal/timetable"
)

// Update is one presence record. EndsAt is nil for open ended states.
type Update struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	StartsAt int64  `json:"starts_at"`
	EndsAt   *int64 `json:"ends_at,omitempty"`
}

// Sink is the external status display. Connect blocks until the handshake
// completes or fails; Push delivers one update.
type Sink interface {
	Connect(ctx context.Context) error
	Push(ctx context.Context, update Update) error
	Close() error
}

// Display strings for the non-lesson states.
const (
	TitleCancelled    = "Free period"
	SubtitleCancelled = "Cancelled"
	TitleBreak        = "Break"
	TitleFreeTime     = "Free time"
)

// Project maps a resolved activity onto a presence update. The second return
// is false for KindNoSchedule: weekends emit nothing and the sink keeps
// whatever it was showing. Instants combine now's calendar date with the
// slot's minute-of-day, in now's location, truncated to whole seconds.
func Project(now time.Time, act resolver.Activity, store *timetable.Store) (Update, bool) {
	switch act.Kind {
	case resolver.KindInLesson:
		start := instant(now, 0, act.Slot.Start)
		end := instant(now, 0, act.Slot.End)
		return Update{
			Title:    act.Slot.Subject,
			Subtitle: "in room " + act.Slot.Room,
			StartsAt: start,
			EndsAt:   &end,
		}, true

	case resolver.KindCancelled:
		start := instant(now, 0, act.Slot.Start)
		end := instant(now, 0, act.Slot.End)
		return Update{
			Title:    TitleCancelled,
			Subtitle: SubtitleCancelled,
			StartsAt: start,
			EndsAt:   &end,
		}, true

	case resolver.KindBreak:
		if act.Next == nil {
			// A break without an upcoming slot is free time.
			return Update{
				Title:    TitleFreeTime,
				StartsAt: freeTimeAnchor(now, store),
			}, true
		}
		end := instant(now, act.Next.DaysAhead, act.Next.Slot.Start)
		return Update{
			Title:    TitleBreak,
			StartsAt: now.Truncate(time.Second).Unix(),
			EndsAt:   &end,
		}, true

	case resolver.KindFreeTime:
		return Update{
			Title:    TitleFreeTime,
			StartsAt: freeTimeAnchor(now, store),
		}, true

	default:
		return Update{}, false
	}
}

// freeTimeAnchor is the end of the current day's last slot. A day with no
// slots at all anchors at now instead.
func freeTimeAnchor(now time.Time, store *timetable.Store) int64 {
	day, ok := timetable.WeekdayOf(now.Weekday())
	if !ok {
		return now.Truncate(time.Second).Unix()
	}
	slots := store.Day(day)
	if len(slots) == 0 {
		return now.Truncate(time.Second).Unix()
	}
	return instant(now, 0, slots[len(slots)-1].End)
}

// instant builds an epoch second from now's date advanced by daysAhead days
// plus a minute-of-day offset, in local time.
func instant(now time.Time, daysAhead int, at timetable.ClockTime) int64 {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return midnight.AddDate(0, 0, daysAhead).Add(time.Duration(at.Minutes()) * time.Minute).Unix()
}
