/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package discord implements the presence sink over the Discord Rich
// Presence IPC pipe. The wire format is a little-endian opcode+length header
// followed by a JSON payload.
package discord

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/schulfunk/schulfunk/internal/presence"
)

const (
	opHandshake = 0
	opFrame     = 1
	opClose     = 2

	// Discord rejects activity state strings shorter than two characters,
	// so empty subtitles are padded with spaces.
	emptyState = "  "

	dialTimeout = 5 * time.Second
)

// Config identifies the application towards the Discord client.
type Config struct {
	ClientID   string
	LargeImage string
	LargeText  string
}

// Sink is a presence.Sink backed by the local Discord client. It is not safe
// for concurrent use; the poller pushes synchronously from a single loop.
type Sink struct {
	cfg    Config
	logger zerolog.Logger
	conn   net.Conn
}

// NewSink creates a disconnected sink. Connect performs the handshake.
func NewSink(cfg Config, logger zerolog.Logger) *Sink {
	return &Sink{
		cfg:    cfg,
		logger: logger.With().Str("component", "discord").Logger(),
	}
}

// Connect dials the first reachable IPC socket and performs the versioned
// handshake with the configured client ID.
func (s *Sink) Connect(ctx context.Context) error {
	if s.cfg.ClientID == "" {
		return fmt.Errorf("discord client id is not configured")
	}

	conn, err := dialIPC(ctx)
	if err != nil {
		return err
	}

	handshake := map[string]any{"v": 1, "client_id": s.cfg.ClientID}
	if err := writeFrame(conn, opHandshake, handshake); err != nil {
		conn.Close()
		return fmt.Errorf("handshake: %w", err)
	}

	reply, err := readFrame(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("handshake reply: %w", err)
	}
	if reply.Evt == "ERROR" {
		conn.Close()
		return fmt.Errorf("handshake rejected: %s", reply.errorMessage())
	}

	s.conn = conn
	s.logger.Debug().Str("client_id", s.cfg.ClientID).Msg("discord handshake complete")
	return nil
}

// Push sends one SET_ACTIVITY frame and waits for the acknowledgement.
func (s *Sink) Push(_ context.Context, update presence.Update) error {
	if s.conn == nil {
		return fmt.Errorf("sink is not connected")
	}

	state := update.Subtitle
	if len(state) < 2 {
		state = emptyState
	}

	activity := map[string]any{
		"details":    update.Title,
		"state":      state,
		"timestamps": timestamps(update),
	}
	if s.cfg.LargeImage != "" {
		assets := map[string]any{"large_image": s.cfg.LargeImage}
		if s.cfg.LargeText != "" {
			assets["large_text"] = s.cfg.LargeText
		}
		activity["assets"] = assets
	}

	payload := map[string]any{
		"cmd": "SET_ACTIVITY",
		"args": map[string]any{
			"pid":      os.Getpid(),
			"activity": activity,
		},
		"nonce": uuid.NewString(),
	}

	if err := writeFrame(s.conn, opFrame, payload); err != nil {
		return fmt.Errorf("set activity: %w", err)
	}

	reply, err := readFrame(s.conn)
	if err != nil {
		return fmt.Errorf("set activity reply: %w", err)
	}
	if reply.Evt == "ERROR" {
		return fmt.Errorf("set activity rejected: %s", reply.errorMessage())
	}
	return nil
}

// Close sends the close opcode and drops the connection.
func (s *Sink) Close() error {
	if s.conn == nil {
		return nil
	}
	_ = writeFrame(s.conn, opClose, map[string]any{})
	err := s.conn.Close()
	s.conn = nil
	return err
}

func timestamps(update presence.Update) map[string]any {
	ts := map[string]any{"start": update.StartsAt}
	if update.EndsAt != nil {
		ts["end"] = *update.EndsAt
	}
	return ts
}

// dialIPC tries the conventional socket locations: discord-ipc-0 through
// discord-ipc-9 under the first temp directory that is set.
func dialIPC(ctx context.Context) (net.Conn, error) {
	dir := ipcDir()
	dialer := net.Dialer{Timeout: dialTimeout}

	var lastErr error
	for i := 0; i < 10; i++ {
		path := filepath.Join(dir, fmt.Sprintf("discord-ipc-%d", i))
		conn, err := dialer.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no discord ipc socket found in %s", dir)
	}
	return nil, fmt.Errorf("dial discord: %w", lastErr)
}

func ipcDir() string {
	for _, key := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(key); dir != "" {
			return dir
		}
	}
	return "/tmp"
}

type frame struct {
	Cmd  string          `json:"cmd"`
	Evt  string          `json:"evt"`
	Data json.RawMessage `json:"data"`
}

func (f frame) errorMessage() string {
	var data struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(f.Data, &data); err == nil && data.Message != "" {
		return data.Message
	}
	return string(f.Data)
}

func writeFrame(conn net.Conn, opcode uint32, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], opcode)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(body)))

	if _, err := conn.Write(header); err != nil {
		return err
	}
	_, err = conn.Write(body)
	return err
}

func readFrame(conn net.Conn) (frame, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(conn, header); err != nil {
		return frame{}, err
	}
	length := binary.LittleEndian.Uint32(header[4:8])

	body := make([]byte, length)
	if _, err := io.ReadFull(conn, body); err != nil {
		return frame{}, err
	}

	var f frame
	if err := json.Unmarshal(body, &f); err != nil {
		return frame{}, err
	}
	return f, nil
}
