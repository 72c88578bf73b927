package utils

import (
	"errors"
	"fmt"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"gopkg.in/yaml.v2"

	"github.com/packetlog/packetlogd/utils/log"
)

const (
	// DefaultListenPort is the port packets are received on.
	DefaultListenPort = "9000"
	// DefaultDataFile is where packets accumulate between startup and
	// shutdown.
	DefaultDataFile = "/var/tmp/packetlogd.data"
	// DefaultMaxPacketSize caps a single newline-delimited packet.
	DefaultMaxPacketSize = 10 * 1024 * 1024
)

// Config holds the packetlogd server configuration. It is constructed once
// in cmd/start and passed down to every component; there is no package-level
// instance.
type Config struct {
	ListenHost        string
	ListenPort        string
	DataFile          string
	MaxPacketSize     int
	MaxConnections    int
	TimestampInterval time.Duration
	StopGracePeriod   time.Duration
	MetricsListen     string
	StartTime         time.Time
}

// ListenAddr returns the host:port string for net.Listen.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.ListenHost, c.ListenPort)
}

// ParseConfig reads a YAML configuration document and applies defaults for
// any omitted key.
func ParseConfig(data []byte) (*Config, error) {
	var aux struct {
		ListenHost        string `yaml:"listen_host"`
		ListenPort        string `yaml:"listen_port"`
		DataFile          string `yaml:"data_file"`
		MaxPacketSize     string `yaml:"max_packet_size"`
		MaxConnections    int    `yaml:"max_connections"`
		TimestampInterval int    `yaml:"timestamp_interval"`
		StopGracePeriod   int    `yaml:"stop_grace_period"`
		MetricsListen     string `yaml:"metrics_listen"`
		LogLevel          string `yaml:"log_level"`
	}

	if err := yaml.Unmarshal(data, &aux); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	c := &Config{
		ListenHost:     aux.ListenHost,
		ListenPort:     DefaultListenPort,
		DataFile:       DefaultDataFile,
		MaxPacketSize:  DefaultMaxPacketSize,
		MaxConnections: aux.MaxConnections,
		MetricsListen:  aux.MetricsListen,
	}

	if aux.ListenPort != "" {
		c.ListenPort = aux.ListenPort
	}
	if aux.DataFile != "" {
		c.DataFile = aux.DataFile
	}

	if aux.MaxPacketSize != "" {
		size, err := bytefmt.ToBytes(aux.MaxPacketSize)
		if err != nil {
			return nil, fmt.Errorf("invalid max_packet_size %q: %w", aux.MaxPacketSize, err)
		}
		if size == 0 {
			return nil, errors.New("max_packet_size must be positive")
		}
		c.MaxPacketSize = int(size)
	}

	if aux.MaxConnections < 0 {
		return nil, errors.New("max_connections must not be negative")
	}

	if aux.TimestampInterval > 0 {
		c.TimestampInterval = time.Duration(aux.TimestampInterval) * time.Second
	}
	if aux.StopGracePeriod > 0 {
		c.StopGracePeriod = time.Duration(aux.StopGracePeriod) * time.Second
	}

	if aux.LogLevel != "" {
		if !log.SetLevelFromString(aux.LogLevel) {
			log.Error("invalid log_level %q, keeping the current level", aux.LogLevel)
		}
	}

	return c, nil
}
