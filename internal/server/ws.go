/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"net/http"
	"time"

	ws "nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/schulfunk/schulfunk/internal/events"
	"github.com/schulfunk/schulfunk/internal/presence"
)

// handleStatusWS streams status changes to the client as JSON messages. The
// current cache entry is sent first so a fresh client never waits a full tick
// for its initial state.
func (s *Server) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	ctx := r.Context()

	s.mu.RLock()
	initial := s.status
	s.mu.RUnlock()
	if err := wsjson.Write(ctx, conn, initial); err != nil {
		s.logger.Debug().Err(err).Msg("websocket initial write failed")
		return
	}

	updated := s.bus.Subscribe(events.EventPresenceUpdated)
	skipped := s.bus.Subscribe(events.EventPresenceSkipped)
	defer s.bus.Unsubscribe(events.EventPresenceUpdated, updated)
	defer s.bus.Unsubscribe(events.EventPresenceSkipped, skipped)

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "client disconnected")
			return
		case payload := <-updated:
			if err := wsjson.Write(ctx, conn, statusFromPayload(payload)); err != nil {
				s.logger.Debug().Err(err).Msg("websocket write failed, client disconnected")
				return
			}
		case payload := <-skipped:
			if err := wsjson.Write(ctx, conn, statusFromPayload(payload)); err != nil {
				s.logger.Debug().Err(err).Msg("websocket write failed, client disconnected")
				return
			}
		}
	}
}

func statusFromPayload(payload events.Payload) Status {
	status := Status{State: "unknown", SinkConnected: true}
	if kind, ok := payload["kind"].(string); ok {
		status.State = kind
	}
	if update, ok := payload["update"].(presence.Update); ok {
		status.Update = &update
	}
	if at, ok := payload["at"].(time.Time); ok {
		status.UpdatedAt = &at
	}
	return status
}
