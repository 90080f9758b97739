package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// freePort returns a TCP port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv(configEnv, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_InvalidDeviceConfig verifies run fails before serving when the
// receiver transport is incomplete.
func TestRun_InvalidDeviceConfig(t *testing.T) {
	t.Setenv(configEnv, writeConfig(t, `
device:
  transport: serial
  serial_device: ""
logging:
  level: error
`))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail without a serial device")
	}
}

// TestRun_StartupAndShutdown starts the service with MQTT and InfluxDB
// disabled. The receiver is not contacted until a request arrives.
func TestRun_StartupAndShutdown(t *testing.T) {
	port := freePort(t)
	t.Setenv(configEnv, writeConfig(t, fmt.Sprintf(`
device:
  host: 127.0.0.1
  port: 60128
api:
  host: 127.0.0.1
  port: %d
mqtt:
  enabled: false
influxdb:
  enabled: false
logging:
  level: error
  format: text
`, port)))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx) }()

	// Wait for the listener.
	deadline := time.Now().Add(3 * time.Second)
	for {
		conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("API server did not start: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}
}

// TestGetConfigPath verifies the ONKYO_CONFIG override.
func TestGetConfigPath(t *testing.T) {
	t.Setenv(configEnv, "")
	if path := getConfigPath(); path != "" {
		t.Errorf("getConfigPath() = %q, want empty", path)
	}

	expected := "/custom/path/config.yaml"
	t.Setenv(configEnv, expected)
	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestHealthCheck_Disabled verifies health check passes with no optional
// clients.
func TestHealthCheck_Disabled(t *testing.T) {
	if err := healthCheck(context.Background(), nil, nil); err != nil {
		t.Errorf("healthCheck() error = %v", err)
	}
}
