/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package poller drives resolution on a fixed cadence and forwards projected
// updates to the presence sink.
package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/schulfunk/schulfunk/internal/events"
	"github.com/schulfunk/schulfunk/internal/presence"
	"github.com/schulfunk/schulfunk/internal/resolver"
	"github.com/schulfunk/schulfunk/internal/telemetry"
	"github.com/schulfunk/schulfunk/internal/timetable"
)

// Poller owns the long-lived sink handle and the tick loop. It has two
// states: idle until the sink handshake succeeds, then running until the
// context is cancelled. A failed tick never changes state; the next tick
// proceeds on schedule.
type Poller struct {
	store         *timetable.Store
	sink          presence.Sink
	bus           *events.Bus
	logger        zerolog.Logger
	tickInterval  time.Duration
	retryInterval time.Duration

	now func() time.Time
}

// Options tune the poll cadence and the sink connect retry delay.
type Options struct {
	TickInterval  time.Duration
	RetryInterval time.Duration
}

// New creates a poller. Zero option values fall back to 15s ticks and 15s
// connect retries, matching the cadence the status display expects.
func New(store *timetable.Store, sink presence.Sink, bus *events.Bus, opts Options, logger zerolog.Logger) *Poller {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 15 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 15 * time.Second
	}
	return &Poller{
		store:         store,
		sink:          sink,
		bus:           bus,
		logger:        logger.With().Str("component", "poller").Logger(),
		tickInterval:  opts.TickInterval,
		retryInterval: opts.RetryInterval,
		now:           time.Now,
	}
}

// Run connects to the sink, retrying indefinitely, then executes the tick
// loop until context cancellation.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := p.sink.Close(); err != nil {
			p.logger.Debug().Err(err).Msg("sink close failed")
		}
	}()

	p.logger.Info().Dur("interval", p.tickInterval).Msg("poller started")
	ticker := time.NewTicker(p.tickInterval)
	defer ticker.Stop()

	// Resolve once immediately instead of waiting out the first interval.
	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// connect blocks in the idle state until the sink handshake succeeds. There
// is no retry cap: a best effort status display should simply wait for its
// sink to appear.
func (p *Poller) connect(ctx context.Context) error {
	for {
		err := p.sink.Connect(ctx)
		if err == nil {
			telemetry.SinkConnectAttemptsTotal.WithLabelValues("ok").Inc()
			p.logger.Info().Msg("sink connected")
			p.bus.Publish(events.EventSinkConnected, events.Payload{"at": p.now()})
			return nil
		}
		telemetry.SinkConnectAttemptsTotal.WithLabelValues("error").Inc()
		p.logger.Warn().Err(err).Dur("retry_in", p.retryInterval).Msg("sink connect failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.retryInterval):
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.PollerTickErrorsTotal.WithLabelValues("panic").Inc()
			p.logger.Error().Interface("panic", r).Msg("tick panicked, tick abandoned")
		}
	}()

	telemetry.PollerTicksTotal.Inc()

	ctx, span := telemetry.StartSpan(ctx, "poller", "tick")
	defer span.End()

	now := p.now()
	act := p.resolve(now)

	telemetry.SetResolvedActivity(act.Kind.String())
	telemetry.AddSpanAttributes(span, map[string]any{"kind": act.Kind.String()})

	update, emit := presence.Project(now, act, p.store)
	if !emit {
		// Weekends are a defined idle state, not a failure; the sink keeps
		// showing whatever it already shows.
		p.bus.Publish(events.EventPresenceSkipped, events.Payload{"kind": act.Kind.String(), "at": now})
		return
	}

	if err := p.sink.Push(ctx, update); err != nil {
		telemetry.PollerTickErrorsTotal.WithLabelValues("push").Inc()
		telemetry.RecordError(span, err)
		p.logger.Error().Err(err).Str("title", update.Title).Msg("presence push failed, tick abandoned")
		return
	}
	telemetry.SinkPushesTotal.Inc()

	p.bus.Publish(events.EventPresenceUpdated, events.Payload{
		"kind":   act.Kind.String(),
		"update": update,
		"at":     now,
	})

	p.logger.Debug().
		Str("kind", act.Kind.String()).
		Str("title", update.Title).
		Str("subtitle", update.Subtitle).
		Msg("presence updated")
}

// resolve composes the two resolvers: when no base occurrence contains now,
// the lookahead decides between a bounded break and open ended free time.
func (p *Poller) resolve(now time.Time) resolver.Activity {
	act := resolver.Current(now, p.store)
	if act.Kind != resolver.KindBreak {
		return act
	}
	next, ok := resolver.Lookahead(now, p.store)
	if !ok {
		return resolver.Activity{Kind: resolver.KindFreeTime}
	}
	act.Next = &next
	return act
}
