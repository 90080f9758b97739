package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
device:
  host: "192.168.1.50"
  port: 60128
  max_volume: 45
mqtt:
  enabled: true
  broker:
    host: "broker.local"
  topic_prefix: "livingroom/onkyo"
profiles:
  - name: movie
    selector: "dvd,bd,dvd"
    volume_level: 30
    subwoofer_level: 2
    max_volume: 40
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.Host != "192.168.1.50" {
		t.Errorf("Device.Host = %q, want %q", cfg.Device.Host, "192.168.1.50")
	}
	if cfg.Device.MaxVolume != 45 {
		t.Errorf("Device.MaxVolume = %d, want 45", cfg.Device.MaxVolume)
	}
	// Unset keys keep their defaults.
	if cfg.Device.MaxAttempts != 5 {
		t.Errorf("Device.MaxAttempts = %d, want 5", cfg.Device.MaxAttempts)
	}
	if cfg.MQTT.TopicPrefix != "livingroom/onkyo" {
		t.Errorf("MQTT.TopicPrefix = %q, want %q", cfg.MQTT.TopicPrefix, "livingroom/onkyo")
	}
	if len(cfg.Profiles) != 1 || cfg.Profiles[0].Name != "movie" {
		t.Fatalf("Profiles = %+v, want single movie profile", cfg.Profiles)
	}
	if cfg.Profiles[0].SubwooferLevel != 2 {
		t.Errorf("Profiles[0].SubwooferLevel = %d, want 2", cfg.Profiles[0].SubwooferLevel)
	}
}

func TestLoad_FileWithoutProfilesKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "logging:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Profiles) != len(DefaultProfiles()) {
		t.Errorf("len(Profiles) = %d, want %d", len(cfg.Profiles), len(DefaultProfiles()))
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	t.Setenv("ONKYO_HOST", "")
	t.Setenv("ONKYO_PORT", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DeviceAddress() != "10.205.0.163:60128" {
		t.Errorf("DeviceAddress() = %q, want %q", cfg.DeviceAddress(), "10.205.0.163:60128")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
device:
  transport: "bluetooth"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected validation error for unknown transport, got nil")
	}
}

func TestLoad_InvalidPortEnv(t *testing.T) {
	t.Setenv("ONKYO_PORT", "sixty")

	if _, err := Load(""); err == nil {
		t.Error("Load() expected error for non-numeric ONKYO_PORT, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing host",
			mutate:  func(c *Config) { c.Device.Host = "" },
			wantErr: true,
		},
		{
			name:    "invalid device port",
			mutate:  func(c *Config) { c.Device.Port = 0 },
			wantErr: true,
		},
		{
			name: "serial without device",
			mutate: func(c *Config) {
				c.Device.Transport = TransportSerial
				c.Device.SerialDevice = ""
			},
			wantErr: true,
		},
		{
			name: "serial with device",
			mutate: func(c *Config) {
				c.Device.Transport = TransportSerial
				c.Device.SerialDevice = "/dev/ttyUSB0"
			},
			wantErr: false,
		},
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.Device.MaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "unknown volume policy",
			mutate:  func(c *Config) { c.Device.VolumePolicy = "ignore" },
			wantErr: true,
		},
		{
			name:    "reject volume policy",
			mutate:  func(c *Config) { c.Device.VolumePolicy = VolumePolicyReject },
			wantErr: false,
		},
		{
			name:    "no profiles",
			mutate:  func(c *Config) { c.Profiles = nil },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name: "mqtt enabled without prefix",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.TopicPrefix = ""
			},
			wantErr: true,
		},
		{
			name:    "invalid api port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		Device: DeviceConfig{
			ConnectTimeoutMS:  1000,
			ResponseTimeoutMS: 2500,
			RetryBackoffMS:    500,
		},
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetConnectTimeout(); got != time.Second {
		t.Errorf("GetConnectTimeout() = %v, want 1s", got)
	}
	if got := cfg.GetResponseTimeout(); got != 2500*time.Millisecond {
		t.Errorf("GetResponseTimeout() = %v, want 2.5s", got)
	}
	if got := cfg.GetRetryBackoff(); got != 500*time.Millisecond {
		t.Errorf("GetRetryBackoff() = %v, want 500ms", got)
	}
	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("ONKYO_HOST", "192.168.0.20")
	t.Setenv("ONKYO_PORT", "60129")
	t.Setenv("ONKYO_TRANSPORT", "serial")
	t.Setenv("ONKYO_SERIAL_DEVICE", "/dev/ttyUSB1")
	t.Setenv("ONKYO_API_HOST", "127.0.0.1")
	t.Setenv("ONKYO_API_PORT", "9090")
	t.Setenv("ONKYO_MQTT_HOST", "mqtt.example.com")
	t.Setenv("ONKYO_MQTT_USERNAME", "testuser")
	t.Setenv("ONKYO_MQTT_PASSWORD", "testpass")
	t.Setenv("ONKYO_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("ONKYO_LOG_LEVEL", "debug")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	checks := []struct {
		field string
		got   any
		want  any
	}{
		{"Device.Host", cfg.Device.Host, "192.168.0.20"},
		{"Device.Port", cfg.Device.Port, 60129},
		{"Device.Transport", cfg.Device.Transport, "serial"},
		{"Device.SerialDevice", cfg.Device.SerialDevice, "/dev/ttyUSB1"},
		{"API.Host", cfg.API.Host, "127.0.0.1"},
		{"API.Port", cfg.API.Port, 9090},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.field, c.got, c.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Device.Port != 60128 {
		t.Errorf("defaultConfig Device.Port = %d, want 60128", cfg.Device.Port)
	}
	if cfg.Device.MaxAttempts != 5 {
		t.Errorf("defaultConfig Device.MaxAttempts = %d, want 5", cfg.Device.MaxAttempts)
	}
	if cfg.GetConnectTimeout() != time.Second {
		t.Errorf("defaultConfig connect timeout = %v, want 1s", cfg.GetConnectTimeout())
	}
	if cfg.GetRetryBackoff() != 500*time.Millisecond {
		t.Errorf("defaultConfig retry backoff = %v, want 500ms", cfg.GetRetryBackoff())
	}
	if cfg.Device.VolumePolicy != VolumePolicyClamp {
		t.Errorf("defaultConfig VolumePolicy = %q, want clamp", cfg.Device.VolumePolicy)
	}
	if cfg.Device.EnsurePowerOn {
		t.Error("defaultConfig EnsurePowerOn should be false")
	}
	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled {
		t.Error("defaultConfig should leave MQTT and InfluxDB disabled")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
}

func TestDefaultProfiles(t *testing.T) {
	seen := make(map[string]bool)
	for _, p := range DefaultProfiles() {
		if seen[p.Selector] {
			t.Errorf("duplicate selector %q in default profiles", p.Selector)
		}
		seen[p.Selector] = true
		if p.VolumeLevel > p.MaxVolume {
			t.Errorf("profile %q volume %d exceeds its max %d", p.Name, p.VolumeLevel, p.MaxVolume)
		}
	}
}
