package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport names accepted in device.transport.
const (
	TransportTCP    = "tcp"
	TransportSerial = "serial"
)

// Volume policies accepted in device.volume_policy.
const (
	VolumePolicyClamp  = "clamp"
	VolumePolicyReject = "reject"
)

// Config is the root configuration structure for onkyo-ctl.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Profiles  []ProfileConfig `yaml:"profiles"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DeviceConfig describes how the receiver is reached and how the proxy
// guards it.
type DeviceConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Transport string `yaml:"transport"`

	// SerialDevice and BaudRate are used when Transport is "serial".
	SerialDevice string `yaml:"serial_device"`
	BaudRate     int    `yaml:"baud_rate"`

	ConnectTimeoutMS  int `yaml:"connect_timeout_ms"`
	ResponseTimeoutMS int `yaml:"response_timeout_ms"`
	MaxAttempts       int `yaml:"max_attempts"`
	RetryBackoffMS    int `yaml:"retry_backoff_ms"`

	// MaxVolume is the ceiling applied when no profile is active.
	MaxVolume    int    `yaml:"max_volume"`
	VolumePolicy string `yaml:"volume_policy"`

	// EnsurePowerOn powers the receiver on before any non-power command.
	EnsurePowerOn bool `yaml:"ensure_power_on"`

	// VerifyProfile re-reads the device after a profile is applied.
	VerifyProfile bool `yaml:"verify_profile"`
}

// ProfileConfig is one entry of the profile catalog.
type ProfileConfig struct {
	Name           string `yaml:"name"`
	Selector       string `yaml:"selector"`
	VolumeLevel    int    `yaml:"volume_level"`
	SubwooferLevel int    `yaml:"subwoofer_level"`
	MaxVolume      int    `yaml:"max_volume"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
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
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
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

// Load builds the configuration from defaults, an optional YAML file and
// environment variable overrides, in that order.
//
// An empty path skips the file. Environment variables follow the pattern
// ONKYO_SECTION_KEY, with ONKYO_HOST and ONKYO_PORT addressing the receiver.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		// A file that lists profiles replaces the built-in catalog.
		cfg.Profiles = nil
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		if len(cfg.Profiles) == 0 {
			cfg.Profiles = DefaultProfiles()
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied. Invalid environment values are reported as errors.
func Default() (*Config, error) {
	return Load("")
}

func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Host:              "10.205.0.163",
			Port:              60128,
			Transport:         TransportTCP,
			BaudRate:          9600,
			ConnectTimeoutMS:  1000,
			ResponseTimeoutMS: 5000,
			MaxAttempts:       5,
			RetryBackoffMS:    500,
			MaxVolume:         50,
			VolumePolicy:      VolumePolicyClamp,
		},
		Profiles: DefaultProfiles(),
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "onkyo-ctl",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "onkyo",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Org:           "home",
			Bucket:        "onkyo",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// DefaultProfiles returns the profile catalog used when none is configured.
func DefaultProfiles() []ProfileConfig {
	return []ProfileConfig{
		{Name: "tv", Selector: "tv", VolumeLevel: 20, SubwooferLevel: 0, MaxVolume: 28},
		{Name: "dj", Selector: "dvd,bd,dvd", VolumeLevel: 27, SubwooferLevel: -8, MaxVolume: 35},
		{Name: "vinyl", Selector: "phono", VolumeLevel: 20, SubwooferLevel: 0, MaxVolume: 30},
		{Name: "spotify", Selector: "video2,cbl,sat", VolumeLevel: 38, SubwooferLevel: -6, MaxVolume: 50},
	}
}

func applyEnvOverrides(cfg *Config) error {
	// Device
	if v := os.Getenv("ONKYO_HOST"); v != "" {
		cfg.Device.Host = v
	}
	if v := os.Getenv("ONKYO_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ONKYO_PORT: %w", err)
		}
		cfg.Device.Port = port
	}
	if v := os.Getenv("ONKYO_TRANSPORT"); v != "" {
		cfg.Device.Transport = v
	}
	if v := os.Getenv("ONKYO_SERIAL_DEVICE"); v != "" {
		cfg.Device.SerialDevice = v
	}

	// API
	if v := os.Getenv("ONKYO_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("ONKYO_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ONKYO_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}

	// MQTT
	if v := os.Getenv("ONKYO_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ONKYO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ONKYO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("ONKYO_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("ONKYO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []string

	switch c.Device.Transport {
	case TransportTCP:
		if c.Device.Host == "" {
			errs = append(errs, "device.host is required")
		}
		if c.Device.Port < 1 || c.Device.Port > 65535 {
			errs = append(errs, "device.port must be between 1 and 65535")
		}
	case TransportSerial:
		if c.Device.SerialDevice == "" {
			errs = append(errs, "device.serial_device is required for serial transport")
		}
		if c.Device.BaudRate <= 0 {
			errs = append(errs, "device.baud_rate must be positive")
		}
	default:
		errs = append(errs, fmt.Sprintf("device.transport %q must be %q or %q", c.Device.Transport, TransportTCP, TransportSerial))
	}

	if c.Device.MaxAttempts < 1 {
		errs = append(errs, "device.max_attempts must be at least 1")
	}
	if c.Device.ConnectTimeoutMS <= 0 {
		errs = append(errs, "device.connect_timeout_ms must be positive")
	}
	if c.Device.ResponseTimeoutMS <= 0 {
		errs = append(errs, "device.response_timeout_ms must be positive")
	}
	if c.Device.RetryBackoffMS < 0 {
		errs = append(errs, "device.retry_backoff_ms must not be negative")
	}
	if c.Device.MaxVolume < 0 {
		errs = append(errs, "device.max_volume must not be negative")
	}
	if c.Device.VolumePolicy != VolumePolicyClamp && c.Device.VolumePolicy != VolumePolicyReject {
		errs = append(errs, fmt.Sprintf("device.volume_policy %q must be %q or %q", c.Device.VolumePolicy, VolumePolicyClamp, VolumePolicyReject))
	}

	if len(c.Profiles) == 0 {
		errs = append(errs, "at least one profile is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DeviceAddress returns host:port of the receiver.
func (c *Config) DeviceAddress() string {
	return fmt.Sprintf("%s:%d", c.Device.Host, c.Device.Port)
}

// GetConnectTimeout returns the device connect timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.Device.ConnectTimeoutMS) * time.Millisecond
}

// GetResponseTimeout returns the device response timeout as a Duration.
func (c *Config) GetResponseTimeout() time.Duration {
	return time.Duration(c.Device.ResponseTimeoutMS) * time.Millisecond
}

// GetRetryBackoff returns the delay between device attempts.
func (c *Config) GetRetryBackoff() time.Duration {
	return time.Duration(c.Device.RetryBackoffMS) * time.Millisecond
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
