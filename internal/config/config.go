package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Source kinds accepted by SOURCE.
const (
	SourceMock   = "mock"
	SourceMQTT   = "mqtt"
	SourceTCP    = "tcp"
	SourceSerial = "serial"
	SourceReplay = "replay"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker             string
	MQTTClientIDRetargeter string
	MQTTClientIDProducer   string
	MQTTClientIDConsole    string
	MQTTClientIDWeb        string

	// Topics
	TopicFrames    string
	TopicPose      string
	TopicAnimation string

	// Sample source
	Source         string
	TCPAddr        string
	SerialPort     string
	SerialBaudRate int
	ReplayFile     string
	ReplayLoop     bool

	// Timing
	TickInterval     int // milliseconds
	ProducerInterval int // milliseconds

	// Retargeting
	Topology           string
	DiagEvery          int
	DiagLimit          int
	AnimationAutostart bool

	// Web Server
	WebServerPort int
}

// Package-level singleton: InitGlobal sets it once, Get reads it under
// the read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the values used for keys missing from the file.
func Default() *Config {
	return &Config{
		MQTTBroker:             "tcp://localhost:1883",
		MQTTClientIDRetargeter: "mocap-retargeter",
		MQTTClientIDProducer:   "mocap-producer",
		MQTTClientIDConsole:    "mocap-console",
		MQTTClientIDWeb:        "mocap-web",

		TopicFrames:    "mocap/frames",
		TopicPose:      "mocap/pose",
		TopicAnimation: "mocap/animation",

		Source:         SourceMock,
		TCPAddr:        "localhost:9000",
		SerialBaudRate: 115200,

		TickInterval:     16,
		ProducerInterval: 16,

		Topology:  "default",
		DiagEvery: 250,
		DiagLimit: 2000,

		WebServerPort: 8080,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default and validates the result.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		if err := cfg.setValue(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_RETARGETER":
		c.MQTTClientIDRetargeter = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_FRAMES":
		c.TopicFrames = value
	case "TOPIC_POSE":
		c.TopicPose = value
	case "TOPIC_ANIMATION":
		c.TopicAnimation = value

	// Sample source
	case "SOURCE":
		switch v := strings.ToLower(value); v {
		case SourceMock, SourceMQTT, SourceTCP, SourceSerial, SourceReplay:
			c.Source = v
		default:
			return fmt.Errorf("SOURCE must be one of mock, mqtt, tcp, serial, replay, got %q", value)
		}
	case "TCP_ADDR":
		c.TCPAddr = value
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, err)
		}
		if rate <= 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE must be positive, got %d", rate)
		}
		c.SerialBaudRate = rate
	case "REPLAY_FILE":
		c.ReplayFile = value
	case "REPLAY_LOOP":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid REPLAY_LOOP %q: %w", value, err)
		}
		c.ReplayLoop = b

	// Timing
	case "TICK_INTERVAL":
		interval, err := positive("TICK_INTERVAL", value)
		if err != nil {
			return err
		}
		c.TickInterval = interval
	case "PRODUCER_INTERVAL":
		interval, err := positive("PRODUCER_INTERVAL", value)
		if err != nil {
			return err
		}
		c.ProducerInterval = interval

	// Retargeting
	case "TOPOLOGY":
		switch v := strings.ToLower(value); v {
		case "default", "legacy":
			c.Topology = v
		default:
			return fmt.Errorf("TOPOLOGY must be default or legacy, got %q", value)
		}
	case "DIAG_EVERY":
		n, err := positive("DIAG_EVERY", value)
		if err != nil {
			return err
		}
		c.DiagEvery = n
	case "DIAG_LIMIT":
		n, err := positive("DIAG_LIMIT", value)
		if err != nil {
			return err
		}
		c.DiagLimit = n
	case "ANIMATION_AUTOSTART":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid ANIMATION_AUTOSTART %q: %w", value, err)
		}
		c.AnimationAutostart = b

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		if port <= 0 || port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", port)
		}
		c.WebServerPort = port

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func positive(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}

// validate checks that the fields the selected source needs are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicPose == "" {
		return fmt.Errorf("TOPIC_POSE is required")
	}
	switch c.Source {
	case SourceMQTT:
		if c.TopicFrames == "" {
			return fmt.Errorf("TOPIC_FRAMES is required for SOURCE=mqtt")
		}
	case SourceTCP:
		if c.TCPAddr == "" {
			return fmt.Errorf("TCP_ADDR is required for SOURCE=tcp")
		}
	case SourceSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for SOURCE=serial")
		}
	case SourceReplay:
		if c.ReplayFile == "" {
			return fmt.Errorf("REPLAY_FILE is required for SOURCE=replay")
		}
	}
	return nil
}

// Tick returns TICK_INTERVAL as a duration.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.TickInterval) * time.Millisecond
}

// ProducerTick returns PRODUCER_INTERVAL as a duration.
func (c *Config) ProducerTick() time.Duration {
	return time.Duration(c.ProducerInterval) * time.Millisecond
}

// InitGlobal initializes the global configuration from file. Only the
// first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
