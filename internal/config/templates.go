package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "link":
		return linkTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const linkTemplate = `name = "devlinkd"
admin_addr = ":9300"

[transport]
kind = "uart"
device = "/dev/ttyUSB0"
baud = 115200
read_timeout_ms = 20

# Bench rig alternative:
# kind = "tcp"
# addr = "localhost:9400"

[link]
frame_size = 16
send_mode = "fifo"
send_queue_limit = 100

[bus]
channel = "link.rx"
subscriber_fifo = 8

[device]
# Heterogeneous device-setup parameters forwarded at link bring-up.
invert_axes = false
exposure_us = 4000
gain = 1.5
profile = "field"
roi = [0, 0, 640, 480]
`
