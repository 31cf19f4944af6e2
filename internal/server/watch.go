package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/treefix50/watchtrack/internal/log"
	"github.com/treefix50/watchtrack/internal/playback"
	"github.com/treefix50/watchtrack/internal/progress"
)

const writeWait = 5 * time.Second

// watchConn is one WebSocket playback channel and the session it drives.
type watchConn struct {
	conn    *websocket.Conn
	session *playback.Session
	logger  zerolog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// send serializes writes; the sampler and the read loop both reply.
func (c *watchConn) send(reply watchReply) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(reply)
}

// close tears the session down, which flushes the pending span, and then
// closes the connection.
func (c *watchConn) close() {
	c.closeOnce.Do(func() {
		_ = c.session.Close()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = c.conn.Close()
		c.logger.Info().Msg("watch session ended")
	})
}

// GET /api/videos/{id}/watch
//
// Only one playback session is active at a time. A new watch connection ends
// the previous one.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")
	view, err := s.opts.Tracker.Progress(r.Context(), videoID)
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		s.logger.Warn().Err(err).Str(log.FieldVideoID, videoID).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxBodyBytes)

	wc := &watchConn{conn: conn}
	player := playback.NewReportedPlayer(view.State.LastPosition)
	// the session outlives request cancellation so teardown can still save
	ctx := context.WithoutCancel(r.Context())
	wc.session = playback.NewSession(ctx, videoID, player, s.opts.Tracker, playback.Options{
		SampleInterval:       s.opts.SampleInterval,
		PositionSaveInterval: s.opts.PositionSaveInterval,
		OnProgress: func(v progress.View) {
			if err := wc.send(watchReply{Type: replyProgress, Progress: v}); err != nil {
				wc.logger.Debug().Err(err).Msg("progress reply dropped")
			}
		},
	})
	wc.logger = s.logger.With().
		Str(log.FieldVideoID, videoID).
		Str(log.FieldSessionID, wc.session.ID()).
		Logger()

	s.activate(wc)
	defer s.release(wc)

	wc.logger.Info().Float64("resume_at", view.State.LastPosition).Msg("watch session started")
	if err := wc.send(watchReply{Type: replyProgress, Progress: view}); err != nil {
		return
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				wc.logger.Warn().Err(err).Msg("watch connection lost")
			}
			return
		}

		var msg watchMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			_ = wc.send(watchReply{Type: replyError, Error: "malformed message"})
			continue
		}
		if msg.CurrentTime != nil {
			player.Report(*msg.CurrentTime)
		}
		if err := wc.session.Handle(playback.Event(msg.Event)); err != nil {
			if errors.Is(err, playback.ErrClosed) {
				return
			}
			_ = wc.send(watchReply{Type: replyError, Error: err.Error()})
		}
	}
}

func (s *Server) activate(wc *watchConn) {
	s.watchMu.Lock()
	prev := s.watch
	s.watch = wc
	s.watchMu.Unlock()

	if prev != nil {
		prev.logger.Info().Msg("superseded by a new watch session")
		prev.close()
	}
}

func (s *Server) release(wc *watchConn) {
	s.watchMu.Lock()
	if s.watch == wc {
		s.watch = nil
	}
	s.watchMu.Unlock()
	wc.close()
}

func (s *Server) closeWatch() {
	s.watchMu.Lock()
	wc := s.watch
	s.watch = nil
	s.watchMu.Unlock()

	if wc != nil {
		wc.close()
	}
}
