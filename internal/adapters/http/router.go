package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dkeye/VoiceTwin/internal/adapters/feed"
	"github.com/dkeye/VoiceTwin/internal/app"
	"github.com/dkeye/VoiceTwin/internal/app/orch"
	"github.com/dkeye/VoiceTwin/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxEventSize = 64 << 10

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware gives every browser a stable token kept in the signed session cookie.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		token, _ := s.Get("client_token").(string)
		if token == "" {
			token = genClientToken()
			s.Set("client_token", token)
			if err := s.Save(); err != nil {
				log.Warn().Str("module", "adapters.http").Err(err).Msg("save session")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, sess app.SessionControl, feedCtl *feed.Controller, limiter *app.StartLimiter) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("VoiceTwinSession", store))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")

	api := r.Group("/api")

	api.GET("/session", func(c *gin.Context) {
		c.JSON(http.StatusOK, sess.Snapshot())
	})

	api.POST("/session/start", func(c *gin.Context) {
		client := c.GetString("client_token")
		if !limiter.Allow(client) {
			log.Warn().Str("module", "adapters.http").Str("client", client).Msg("start rate limited")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
			return
		}
		go func() {
			if err := sess.Start(ctx); err != nil && !errors.Is(err, orch.ErrSuperseded) {
				log.Info().Str("module", "adapters.http").Err(err).Msg("start failed")
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"accepted": true})
	})

	api.POST("/session/stop", func(c *gin.Context) {
		sess.Stop()
		c.JSON(http.StatusOK, sess.Snapshot())
	})

	api.POST("/session/events", func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventSize))
		if err != nil || !json.Valid(body) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event"})
			return
		}
		if err := sess.Send(json.RawMessage(body)); err != nil {
			switch {
			case errors.Is(err, orch.ErrNotLive), errors.Is(err, orch.ErrChannelClosed):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusBadGateway, gin.H{"error": "send failed"})
			}
			return
		}
		c.Status(http.StatusNoContent)
	})

	api.GET("/ws/feed", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws feed endpoint hit")
		feedCtl.Handle(ctx, c)
	})

	return r
}
