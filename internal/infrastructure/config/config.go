package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Threshold bounds accepted for the software alarm, in °C.
// These match the usable range of the NTC thermistor on the device.
const (
	MinAlarmThreshold = -40.0
	MaxAlarmThreshold = 125.0
)

// Config is the root configuration structure for the home panel core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Device    DeviceConfig    `yaml:"device"`
	Alarm     AlarmConfig     `yaml:"alarm"`
	Activity  ActivityConfig  `yaml:"activity"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// NodeConfig identifies the controlled node on shared buses (MQTT topics, telemetry tags).
type NodeConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DeviceConfig contains settings for talking to the microcontroller.
type DeviceConfig struct {
	// Address is the device's host[:port] or base URL. May be empty;
	// the view layer can supply it later through the API.
	Address string `yaml:"address"`

	// AutoConnect starts polling at startup when Address is set.
	AutoConnect bool `yaml:"auto_connect"`

	// PollIntervalMS is the status polling period while connected.
	PollIntervalMS int `yaml:"poll_interval_ms"`

	// RequestTimeoutMS is the hard budget for each device request.
	RequestTimeoutMS int `yaml:"request_timeout_ms"`
}

// AlarmConfig contains software alarm settings.
type AlarmConfig struct {
	// DefaultThreshold is used until the user stores a threshold of their own.
	DefaultThreshold float64 `yaml:"default_threshold"`

	// PushToDevice sends SET_THRESHOLD to the device whenever the software
	// threshold changes, so the firmware's own alarm agrees with the panel.
	PushToDevice bool `yaml:"push_to_device"`
}

// ActivityConfig contains activity log settings.
type ActivityConfig struct {
	// MaxEntries caps the in-memory log. 0 keeps every entry.
	MaxEntries int `yaml:"max_entries"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains the view API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HOMEPANEL_SECTION_KEY
// For example: HOMEPANEL_DEVICE_ADDRESS, HOMEPANEL_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
//
// The device timings follow the firmware's expectations: one status
// request every 2 s, each bounded to 3 s.
func Default() *Config {
	return &Config{
		Node: NodeConfig{
			ID:   "node-01",
			Name: "Home Panel",
		},
		Device: DeviceConfig{
			AutoConnect:      true,
			PollIntervalMS:   2000,
			RequestTimeoutMS: 3000,
		},
		Alarm: AlarmConfig{
			DefaultThreshold: 35.0,
			PushToDevice:     true,
		},
		Database: DatabaseConfig{
			Path:        "./data/homepanel.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "homepanel-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HOMEPANEL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOMEPANEL_DEVICE_ADDRESS"); v != "" {
		cfg.Device.Address = v
	}
	if v := os.Getenv("HOMEPANEL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("HOMEPANEL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOMEPANEL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOMEPANEL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("HOMEPANEL_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HOMEPANEL_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("HOMEPANEL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Node.ID == "" {
		errs = append(errs, "node.id is required")
	}
	if strings.ContainsAny(c.Node.ID, "/+#") {
		errs = append(errs, "node.id must not contain MQTT topic characters (/ + #)")
	}

	if c.Device.PollIntervalMS <= 0 {
		errs = append(errs, "device.poll_interval_ms must be positive")
	}
	if c.Device.RequestTimeoutMS <= 0 {
		errs = append(errs, "device.request_timeout_ms must be positive")
	}

	if c.Alarm.DefaultThreshold < MinAlarmThreshold || c.Alarm.DefaultThreshold > MaxAlarmThreshold {
		errs = append(errs, fmt.Sprintf("alarm.default_threshold must be between %.0f and %.0f", MinAlarmThreshold, MaxAlarmThreshold))
	}

	if c.Activity.MaxEntries < 0 {
		errs = append(errs, "activity.max_entries must not be negative")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// PollInterval returns the device polling period as a Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Device.PollIntervalMS) * time.Millisecond
}

// RequestTimeout returns the per-request device budget as a Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Device.RequestTimeoutMS) * time.Millisecond
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
