package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/devlink/internal/bus"
	"github.com/danmuck/devlink/internal/config"
	"github.com/danmuck/devlink/internal/frame"
	"github.com/danmuck/devlink/internal/observability"
	"github.com/danmuck/devlink/internal/transceiver"
	"github.com/danmuck/devlink/internal/transport"
)

type linkService struct {
	cfg     config.LinkConfig
	tx      *transceiver.Transceiver
	pub     *bus.Publisher[*frame.Frame]
	started time.Time

	received  atomic.Uint64
	published atomic.Uint64
	consumed  atomic.Uint64
}

func main() {
	configPath := flag.String("config", "cmd/devlinkd/config.toml", "path to link config")
	flag.Parse()

	observability.InitLogger("devlinkd")
	observability.RegisterMetrics()

	cfg, err := config.LoadLinkConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load link config")
	}
	log.Info().Str("path", *configPath).Str("name", cfg.Name).Msg("loaded link config")

	params, err := config.LoadParams(*configPath, "device")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load device params")
	}
	for key, p := range params {
		log.Info().
			Str("param", key).
			Str("kind", p.Kind().String()).
			Str("value", p.Describe()).
			Msg("device param")
	}

	tr := buildTransport(cfg.Transport)
	if err := tr.Open(); err != nil {
		log.Warn().Err(err).Msg("transport open failed, transceiver will keep retrying")
	}

	tx, err := transceiver.New(cfg.Link.FrameSize, tr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build transceiver")
	}
	tx.SetSendMode(parseSendMode(cfg.Link.SendMode), cfg.Link.SendQueueLimit)
	tx.EnableRealtimeSend(true)

	pub, err := bus.NewPublisher[*frame.Frame](cfg.Bus.Channel)
	if err != nil {
		log.Fatal().Err(err).Str("channel", cfg.Bus.Channel).Msg("failed to bind link publisher")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := &linkService{cfg: cfg, tx: tx, pub: pub, started: time.Now()}
	go svc.pump(ctx)
	go svc.watch(ctx)

	srv := &http.Server{Addr: cfg.AdminAddr, Handler: svc.buildRouter()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("admin server stopped")
		}
	}()
	log.Info().
		Str("addr", cfg.AdminAddr).
		Str("channel", cfg.Bus.Channel).
		Str("transport", cfg.Transport.Kind).
		Msg("devlinkd started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	tx.Close()
	pub.Reset()
	tr.Close()
}

// pump moves frames from the link onto the bus. Receive faults are
// absorbed by the transceiver; the loop just paces itself when the link
// is quiet.
func (s *linkService) pump(ctx context.Context) {
	rx := frame.New(s.cfg.Link.FrameSize)
	for ctx.Err() == nil {
		if err := s.tx.RecvPacket(rx); err != nil {
			time.Sleep(time.Millisecond)
			continue
		}
		s.received.Add(1)
		if err := s.pub.Push(rx.Clone()); err != nil {
			log.Error().Err(err).Msg("bus push")
			continue
		}
		s.published.Add(1)
	}
}

// watch consumes the link channel like any application subscriber would
// and periodically reports its delivery stats.
func (s *linkService) watch(ctx context.Context) {
	sub, err := bus.NewSubscriber[*frame.Frame](s.cfg.Bus.Channel, s.cfg.Bus.SubscriberFIFO)
	if err != nil {
		log.Error().Err(err).Msg("failed to bind watch subscriber")
		return
	}
	defer sub.Reset()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for ctx.Err() == nil {
		if _, err := sub.PopFor(time.Second); err == nil {
			s.consumed.Add(1)
		} else if errors.Is(err, bus.ErrChannelStopped) {
			return
		}

		select {
		case <-ticker.C:
			stats := sub.PerformanceStats()
			log.Debug().
				Float64("hz", stats.FrequencyHz).
				Dur("max_latency", stats.MaxLatency).
				Dur("p1_latency", stats.P1Latency).
				Uint64("total", stats.TotalMessages).
				Msg("link channel stats")
		default:
		}
	}
}

func buildTransport(cfg config.TransportConfig) transport.Transport {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "tcp":
		return transport.NewTCP(cfg.Addr, time.Duration(cfg.ReadTimeoutMS)*time.Millisecond)
	default:
		return transport.NewUART(cfg.Device, cfg.Baud)
	}
}

func parseSendMode(raw string) transceiver.SendMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "latest_only":
		return transceiver.SendLatestOnly
	case "limited_fifo":
		return transceiver.SendLimitedFIFO
	default:
		return transceiver.SendFIFO
	}
}
