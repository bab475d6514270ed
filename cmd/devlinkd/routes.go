package main

import (
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/devlink/internal/bus"
	"github.com/danmuck/devlink/internal/frame"
	"github.com/danmuck/devlink/internal/observability"
)

type sendRequest struct {
	// Payload is hex-encoded and lands at offset 1 of the frame; it must
	// fit the payload region (frame_size - 3 bytes).
	Payload   string `json:"payload"`
	CheckByte uint8  `json:"check_byte"`
}

func (s *linkService) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.RequestLogger(log.Logger))
	router.Use(observability.RequestMetricsMiddleware(s.cfg.Name))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.started).String(),
			"component": "devlinkd-api",
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/status", func(c *gin.Context) {
		mode, limit, depth := s.tx.QueueStatus()
		c.JSON(http.StatusOK, gin.H{
			"name":             s.cfg.Name,
			"transport_open":   s.tx.IsOpen(),
			"frames_received":  s.received.Load(),
			"frames_published": s.published.Load(),
			"frames_consumed":  s.consumed.Load(),
			"send_mode":        mode.String(),
			"send_queue_limit": limit,
			"send_queue_depth": depth,
			"channels":         bus.Channels(),
		})
	})

	router.POST("/send", func(c *gin.Context) {
		var req sendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		payload, err := hex.DecodeString(req.Payload)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload must be hex encoded"})
			return
		}
		if len(payload) > s.cfg.Link.FrameSize-3 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "payload exceeds frame payload region",
				"max":   s.cfg.Link.FrameSize - 3,
			})
			return
		}

		f := frame.New(s.cfg.Link.FrameSize)
		for i, b := range payload {
			if !frame.Put(f, b, 1+i) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "payload does not fit frame"})
				return
			}
		}
		f.SetCheckByte(req.CheckByte)

		if err := s.tx.SendPacket(f); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		_, _, depth := s.tx.QueueStatus()
		c.JSON(http.StatusAccepted, gin.H{"queued": true, "send_queue_depth": depth})
	})

	return router
}
