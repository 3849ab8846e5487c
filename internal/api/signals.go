// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"time"

	"github.com/ManuGH/umms/internal/bus"
	"github.com/ManuGH/umms/internal/log"
	"github.com/ManuGH/umms/internal/metrics"
	"github.com/ManuGH/umms/internal/session"
	"github.com/gorilla/websocket"
)

const (
	signalWriteTimeout = 5 * time.Second
	signalPingPeriod   = 30 * time.Second
)

// handleSignals streams session signals as JSON text frames. The optional
// "session" query parameter restricts the stream to one player.
func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, err := s.signals.Subscribe(ctx, bus.TopicSignals)
	if err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	defer func() { _ = sub.Close() }()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Str(log.FieldEvent, "api.ws_upgrade_failed").Msg("websocket upgrade failed")
		return
	}

	metrics.SignalStreamClients.Inc()
	defer metrics.SignalStreamClients.Dec()

	filter := r.URL.Query().Get("session")
	logger := s.logger.With().Str("remote_addr", r.RemoteAddr).Logger()
	logger.Info().Str(log.FieldEvent, "api.ws_connected").Msg("signal stream client connected")

	// The client never sends; reading only surfaces the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	defer func() {
		_ = conn.Close()
		<-closed
		logger.Info().Str(log.FieldEvent, "api.ws_disconnected").Msg("signal stream client disconnected")
	}()

	ping := time.NewTicker(signalPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(signalWriteTimeout)); err != nil {
				return
			}
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			sig, ok := msg.(session.Signal)
			if !ok || (filter != "" && sig.SessionID != filter) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(signalWriteTimeout))
			if err := conn.WriteJSON(sig); err != nil {
				logger.Debug().Err(err).Msg("signal write failed")
				return
			}
		}
	}
}
