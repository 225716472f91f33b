package server

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ubxdash/ubxdash/internal/ubx"
)

// Config holds all dashboard configuration.
type Config struct {
	mu sync.RWMutex

	// Receiver link
	Receiver ReceiverConfig `yaml:"receiver" json:"receiver"`

	// Display preferences
	Display DisplayConfig `yaml:"display" json:"display"`

	// MQTT publishing
	MQTT MQTTConfig `yaml:"mqtt" json:"mqtt"`

	// Track logging
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Server
	Server ServerConfig `yaml:"server" json:"server"`

	path string // file path for save/load
}

type ReceiverConfig struct {
	Type     string         `json:"type"`     // "ublox", "nmea" or "demo"
	PortPath string         `json:"portPath"` // e.g. /dev/ttyACM0
	BaudRate int            `json:"baudRate"`
	Poll     ubx.PollConfig `json:"poll"`
	// PositionHz is the position polling rate; SatelliteEvery the interval
	// between satellite-table polls (they are much larger frames).
	PositionHz     int           `json:"positionHz"`
	SatelliteEvery time.Duration `json:"satelliteEvery"`
}

// receiverYAML is the on-disk shape of ReceiverConfig. Durations are kept as
// strings ("2s", "500ms") because yaml.v3 has no native time.Duration support.
type receiverYAML struct {
	Type     *string `yaml:"type"`
	PortPath *string `yaml:"port_path"`
	BaudRate *int    `yaml:"baud_rate"`
	Poll     *struct {
		MaxRetries        *int    `yaml:"max_retries"`
		AttemptTimeout    *string `yaml:"attempt_timeout"`
		InterAttemptDelay *string `yaml:"inter_attempt_delay"`
	} `yaml:"poll"`
	PositionHz     *int    `yaml:"position_hz"`
	SatelliteEvery *string `yaml:"satellite_every"`
}

// UnmarshalYAML merges present keys into the receiver config; absent keys keep
// whatever was already set (the defaults).
func (r *ReceiverConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw receiverYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Type != nil {
		r.Type = *raw.Type
	}
	if raw.PortPath != nil {
		r.PortPath = *raw.PortPath
	}
	if raw.BaudRate != nil {
		r.BaudRate = *raw.BaudRate
	}
	if raw.Poll != nil {
		if raw.Poll.MaxRetries != nil {
			r.Poll.MaxRetries = *raw.Poll.MaxRetries
		}
		if err := setDuration(&r.Poll.AttemptTimeout, "poll.attempt_timeout", raw.Poll.AttemptTimeout); err != nil {
			return err
		}
		if err := setDuration(&r.Poll.InterAttemptDelay, "poll.inter_attempt_delay", raw.Poll.InterAttemptDelay); err != nil {
			return err
		}
	}
	if raw.PositionHz != nil {
		r.PositionHz = *raw.PositionHz
	}
	return setDuration(&r.SatelliteEvery, "satellite_every", raw.SatelliteEvery)
}

func (r ReceiverConfig) MarshalYAML() (interface{}, error) {
	type pollOut struct {
		MaxRetries        int    `yaml:"max_retries"`
		AttemptTimeout    string `yaml:"attempt_timeout"`
		InterAttemptDelay string `yaml:"inter_attempt_delay"`
	}
	return struct {
		Type           string  `yaml:"type"`
		PortPath       string  `yaml:"port_path"`
		BaudRate       int     `yaml:"baud_rate"`
		Poll           pollOut `yaml:"poll"`
		PositionHz     int     `yaml:"position_hz"`
		SatelliteEvery string  `yaml:"satellite_every"`
	}{
		Type:     r.Type,
		PortPath: r.PortPath,
		BaudRate: r.BaudRate,
		Poll: pollOut{
			MaxRetries:        r.Poll.MaxRetries,
			AttemptTimeout:    r.Poll.AttemptTimeout.String(),
			InterAttemptDelay: r.Poll.InterAttemptDelay.String(),
		},
		PositionHz:     r.PositionHz,
		SatelliteEvery: r.SatelliteEvery.String(),
	}, nil
}

func setDuration(dst *time.Duration, field string, s *string) error {
	if s == nil {
		return nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", field, *s)
	}
	*dst = d
	return nil
}

type DisplayConfig struct {
	Units UnitsConfig `yaml:"units" json:"units"`
}

type UnitsConfig struct {
	Height string `yaml:"height" json:"height"` // "m" or "ft"
	Speed  string `yaml:"speed" json:"speed"`   // "kph" or "mph"
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Broker   string `yaml:"broker" json:"broker"` // e.g. tcp://localhost:1883
	ClientID string `yaml:"client_id" json:"clientId"`
	Topic    string `yaml:"topic" json:"topic"`
}

type LoggingConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Path     string `yaml:"path" json:"path"`
	Interval int    `yaml:"interval_ms" json:"intervalMs"` // ms between log entries
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listenAddr"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Receiver: ReceiverConfig{
			Type:           "demo",
			PortPath:       "/dev/ttyACM0",
			BaudRate:       9600,
			Poll:           ubx.PollConfig{}.WithDefaults(),
			PositionHz:     1,
			SatelliteEvery: 10 * time.Second,
		},
		Display: DisplayConfig{
			Units: UnitsConfig{
				Height: "m",
				Speed:  "kph",
			},
		},
		MQTT: MQTTConfig{
			Enabled:  false,
			Broker:   "tcp://localhost:1883",
			ClientID: "ubxdash",
			Topic:    "gnss/fix",
		},
		Logging: LoggingConfig{
			Enabled:  false,
			Path:     "/var/log/ubxdash",
			Interval: 1000,
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
	}
}

// LoadConfig reads config from a YAML file, then applies .env and environment
// variable overrides. Falls back to defaults if YAML not found.
func LoadConfig(path string) *Config {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[config] no config at %s, using defaults", path)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("[config] error parsing %s: %v, using defaults", path, err)
		cfg = DefaultConfig()
		cfg.path = path
	} else {
		log.Printf("[config] loaded from %s", path)
	}

	// Load .env file from the same directory as the config, or from CWD
	envPaths := []string{
		filepath.Join(filepath.Dir(path), ".env"),
		".env",
	}
	for _, ep := range envPaths {
		loadEnvFile(ep)
	}

	cfg.applyEnvOverrides()
	cfg.Receiver.Poll = cfg.Receiver.Poll.WithDefaults()
	return cfg
}

// loadEnvFile reads a simple KEY=VALUE .env file and sets os env vars.
func loadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	log.Printf("[config] loading .env from %s", path)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		val = strings.Trim(val, `"'`)
		// Real env takes precedence over .env entries
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

// applyEnvOverrides reads environment variables and overrides config values.
// Supported: GNSS_TYPE, GNSS_PORT, GNSS_BAUD, GNSS_MAX_RETRIES, LISTEN_ADDR,
// MQTT_ENABLED, MQTT_BROKER, MQTT_TOPIC, LOG_ENABLED, LOG_PATH,
// LOG_INTERVAL_MS, HEIGHT_UNIT, SPEED_UNIT
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GNSS_TYPE"); v != "" {
		c.Receiver.Type = v
	}
	if v := os.Getenv("GNSS_PORT"); v != "" {
		c.Receiver.PortPath = v
	}
	if v := os.Getenv("GNSS_BAUD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Receiver.BaudRate = n
		}
	}
	if v := os.Getenv("GNSS_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Receiver.Poll.MaxRetries = n
		}
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("MQTT_ENABLED"); v != "" {
		c.MQTT.Enabled = v == "1" || v == "true" || v == "yes"
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
	}
	if v := os.Getenv("MQTT_TOPIC"); v != "" {
		c.MQTT.Topic = v
	}
	if v := os.Getenv("LOG_ENABLED"); v != "" {
		c.Logging.Enabled = v == "1" || v == "true" || v == "yes"
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		c.Logging.Path = v
	}
	if v := os.Getenv("LOG_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Logging.Interval = n
		}
	}
	if v := os.Getenv("HEIGHT_UNIT"); v != "" {
		c.Display.Units.Height = v
	}
	if v := os.Getenv("SPEED_UNIT"); v != "" {
		c.Display.Units.Speed = v
	}
}

// Save writes the config to its YAML file.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.path == "" {
		c.path = "/etc/ubxdash/config.yaml"
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0644)
}

// ToJSON serializes config for the API.
func (c *Config) ToJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal(c)
}

// UpdateFromJSON applies a partial JSON config update by deep-merging
// incoming fields into the existing config. Fields not present in the
// incoming JSON are preserved (port paths, poll tuning, logging).
func (c *Config) UpdateFromJSON(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	currentBytes, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal current config: %w", err)
	}
	var base map[string]interface{}
	if err := json.Unmarshal(currentBytes, &base); err != nil {
		return fmt.Errorf("unmarshal current config: %w", err)
	}

	var patch map[string]interface{}
	if err := json.Unmarshal(data, &patch); err != nil {
		return fmt.Errorf("unmarshal patch: %w", err)
	}

	deepMerge(base, patch)

	merged, err := json.Marshal(base)
	if err != nil {
		return fmt.Errorf("marshal merged config: %w", err)
	}
	return json.Unmarshal(merged, c)
}

// deepMerge recursively merges src into dst. For nested maps, values are
// merged rather than replaced. For all other types, src overwrites dst.
func deepMerge(dst, src map[string]interface{}) {
	for key, srcVal := range src {
		if srcMap, ok := srcVal.(map[string]interface{}); ok {
			if dstMap, ok := dst[key].(map[string]interface{}); ok {
				deepMerge(dstMap, srcMap)
				continue
			}
		}
		dst[key] = srcVal
	}
}
