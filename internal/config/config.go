package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/danmuck/devlink/internal/frame"
)

// LinkConfig shapes one devlinkd instance: the transport it drives, the
// frame geometry, the outbound queue policy and the bus channel received
// frames fan out on.
type LinkConfig struct {
	Name      string          `toml:"name"`
	AdminAddr string          `toml:"admin_addr"`
	Transport TransportConfig `toml:"transport"`
	Link      LinkSettings    `toml:"link"`
	Bus       BusSettings     `toml:"bus"`
}

type TransportConfig struct {
	// Kind selects the device: "uart" or "tcp".
	Kind          string `toml:"kind"`
	Device        string `toml:"device"`
	Baud          int    `toml:"baud"`
	Addr          string `toml:"addr"`
	ReadTimeoutMS int    `toml:"read_timeout_ms"`
}

type LinkSettings struct {
	FrameSize int `toml:"frame_size"`
	// SendMode is "fifo", "latest_only" or "limited_fifo".
	SendMode       string `toml:"send_mode"`
	SendQueueLimit int    `toml:"send_queue_limit"`
}

type BusSettings struct {
	Channel        string `toml:"channel"`
	SubscriberFIFO int    `toml:"subscriber_fifo"`
}

func LoadLinkConfig(path string) (LinkConfig, error) {
	var cfg LinkConfig
	if err := loadToml(path, &cfg); err != nil {
		return LinkConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "devlinkd"
	}
	if cfg.AdminAddr == "" {
		cfg.AdminAddr = ":9300"
	}
	if cfg.Transport.Kind == "" {
		cfg.Transport.Kind = "uart"
	}
	if cfg.Transport.Baud == 0 {
		cfg.Transport.Baud = 115200
	}
	if cfg.Transport.ReadTimeoutMS == 0 {
		cfg.Transport.ReadTimeoutMS = 20
	}
	if cfg.Link.FrameSize == 0 {
		cfg.Link.FrameSize = frame.DefaultCapacity
	}
	if cfg.Link.SendMode == "" {
		cfg.Link.SendMode = "fifo"
	}
	if cfg.Bus.Channel == "" {
		cfg.Bus.Channel = "link.rx"
	}
	if err := ValidateLinkConfig(cfg); err != nil {
		return LinkConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateLinkConfig(cfg LinkConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("link config missing name")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Transport.Kind)) {
	case "uart":
		if strings.TrimSpace(cfg.Transport.Device) == "" {
			return fmt.Errorf("uart transport requires device")
		}
	case "tcp":
		if strings.TrimSpace(cfg.Transport.Addr) == "" {
			return fmt.Errorf("tcp transport requires addr")
		}
	default:
		return fmt.Errorf("unknown transport kind: %s", cfg.Transport.Kind)
	}
	if cfg.Link.FrameSize < frame.MinCapacity {
		return fmt.Errorf("frame_size %d below minimum %d", cfg.Link.FrameSize, frame.MinCapacity)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Link.SendMode)) {
	case "fifo", "latest_only", "limited_fifo":
	default:
		return fmt.Errorf("unknown send_mode: %s", cfg.Link.SendMode)
	}
	if cfg.Link.SendQueueLimit < 0 {
		return fmt.Errorf("send_queue_limit must not be negative")
	}
	if cfg.Bus.SubscriberFIFO < 0 {
		return fmt.Errorf("subscriber_fifo must not be negative")
	}
	return nil
}
