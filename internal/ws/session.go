package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const readLimit = 1 << 20

// Session is a single time-boxed WebSocket exchange: dial, subscribe, read until the deadline.
type Session struct {
	url     string
	timeout time.Duration
	log     *zap.Logger
}

func NewSession(url string, timeout time.Duration, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{url: url, timeout: timeout, log: log}
}

// Run delivers every inbound frame to handler in arrival order. The connection is
// closed once the timeout elapses or the peer closes it; frames already handled are kept.
// Only dial and subscribe failures are returned.
func (s *Session) Run(ctx context.Context, messages []any, handler func([]byte)) (int, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return 0, err
	}
	conn.SetReadLimit(readLimit)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "session done") }()

	for _, msg := range messages {
		if err := writeJSON(ctx, conn, msg); err != nil {
			return 0, err
		}
	}

	frames := 0
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			s.logReadEnd(ctx, err, frames)
			return frames, nil
		}
		frames++
		if handler != nil {
			handler(data)
		}
	}
}

func (s *Session) logReadEnd(ctx context.Context, err error, frames int) {
	if ctx.Err() != nil {
		s.log.Debug("ws session deadline reached", zap.String("url", s.url), zap.Int("frames", frames))
		return
	}
	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
		var closeErr websocket.CloseError
		if errors.As(err, &closeErr) {
			s.log.Info("ws session closed by peer", zap.String("url", s.url), zap.Int("status", int(closeErr.Code)), zap.String("reason", closeErr.Reason))
			return
		}
	}
	s.log.Warn("ws session read failed", zap.String("url", s.url), zap.Int("frames", frames), zap.Error(err))
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
