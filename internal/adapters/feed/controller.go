// Package feed serves the session state to UIs over WebSocket and accepts their commands.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dkeye/VoiceTwin/internal/app"
	"github.com/dkeye/VoiceTwin/internal/app/orch"
	"github.com/dkeye/VoiceTwin/internal/config"
	"github.com/dkeye/VoiceTwin/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeWait         = 5 * time.Second
	defaultPingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	Session  app.SessionControl
	Registry *app.Registry
	Limiter  *app.StartLimiter
	Cfg      config.FeedConfig
}

func NewController(sess app.SessionControl, reg *app.Registry, limiter *app.StartLimiter, cfg config.FeedConfig) *Controller {
	return &Controller{Session: sess, Registry: reg, Limiter: limiter, Cfg: cfg}
}

// Handle upgrades the request and serves one subscriber until it disconnects or ctx ends.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	client := c.GetString("client_token")
	id := core.SessionID(uuid.NewString())
	logger := log.With().Str("module", "feed").Str("feed_id", string(id)).Str("client", client).Logger()

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("ws upgrade")
		return
	}

	conn := NewConn(ws, ctl.Cfg.SendBuffer)
	ctl.Registry.Subscribe(id, client, conn)
	ctl.sendState(conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn, &logger)
	go ctl.readPump(ctx, cancel, id, client, conn, &logger)
}

func (ctl *Controller) pingPeriod() time.Duration {
	if ctl.Cfg.PingPeriod <= 0 {
		return defaultPingPeriod
	}
	return ctl.Cfg.PingPeriod
}

func (ctl *Controller) pongWait() time.Duration {
	return ctl.pingPeriod() * 10 / 9
}

func (ctl *Controller) writePump(ctx context.Context, c *Conn, logger *zerolog.Logger) {
	ticker := time.NewTicker(ctl.pingPeriod())
	defer ticker.Stop()
	defer c.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.Done():
			return
		case data := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug().Err(err).Msg("write error")
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logger.Debug().Err(err).Msg("ping error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, id core.SessionID, client string, c *Conn, logger *zerolog.Logger) {
	defer func() {
		ctl.Registry.Unsubscribe(id)
		c.Close()
		cancel()
		logger.Info().Msg("feed closed")
	}()

	c.ws.SetReadLimit(ctl.Cfg.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(ctl.pongWait()))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(ctl.pongWait()))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("read error")
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		ctl.handleCommand(client, c, data, logger)
	}
}

type command struct {
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event,omitempty"`
}

func (ctl *Controller) handleCommand(client string, c *Conn, data []byte, logger *zerolog.Logger) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		ctl.sendError(c, "bad_json")
		return
	}

	switch cmd.Type {
	case "start":
		if !ctl.Limiter.Allow(client) {
			logger.Warn().Msg("start rate limited")
			ctl.sendError(c, "rate_limited")
			return
		}
		go func() {
			if err := ctl.Session.Start(context.Background()); err != nil && !errors.Is(err, orch.ErrSuperseded) {
				logger.Info().Err(err).Msg("start failed")
			}
		}()
	case "stop":
		ctl.Session.Stop()
	case "ping":
		ctl.sendJSON(c, struct {
			Type string `json:"type"`
		}{Type: "pong"})
	case "snapshot":
		ctl.sendState(c)
	case "send":
		if len(cmd.Event) == 0 {
			ctl.sendError(c, "missing_event")
			return
		}
		if err := ctl.Session.Send(cmd.Event); err != nil {
			ctl.sendError(c, sendErrorCode(err))
		}
	default:
		logger.Debug().Str("type", cmd.Type).Msg("unknown command")
		ctl.sendError(c, "unknown_command")
	}
}

func sendErrorCode(err error) string {
	switch {
	case errors.Is(err, orch.ErrNotLive):
		return "not_live"
	case errors.Is(err, orch.ErrChannelClosed):
		return "channel_closed"
	default:
		return "send_failed"
	}
}

func (ctl *Controller) sendState(c *Conn) {
	b, err := EncodeState(ctl.Session.Snapshot())
	if err != nil {
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendError(c *Conn, code string) {
	ctl.sendJSON(c, struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}{Type: "error", Error: code})
}

func (ctl *Controller) sendJSON(c *Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.TrySend(b)
}
