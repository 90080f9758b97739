package eiscp

import (
	"testing"
	"time"

	"github.com/mtyszkiewicz/onkyo-ctl/internal/infrastructure/config"
)

func TestNewDialer(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.DeviceConfig
		want    Dialer
		wantErr bool
	}{
		{
			name: "tcp",
			cfg: config.DeviceConfig{
				Transport: config.TransportTCP, Host: "10.0.0.5", Port: 60128,
				ConnectTimeoutMS: 1000, ResponseTimeoutMS: 2500,
			},
			want: TCPDialer{Address: "10.0.0.5:60128", ConnectTimeout: time.Second, ResponseTimeout: 2500 * time.Millisecond},
		},
		{
			name: "empty transport is tcp",
			cfg:  config.DeviceConfig{Host: "fe80::1", Port: 60128},
			want: TCPDialer{Address: "[fe80::1]:60128"},
		},
		{
			name: "serial",
			cfg:  config.DeviceConfig{Transport: config.TransportSerial, SerialDevice: "/dev/ttyUSB0", BaudRate: 9600},
			want: SerialDialer{Device: "/dev/ttyUSB0", BaudRate: 9600},
		},
		{
			name:    "tcp without host",
			cfg:     config.DeviceConfig{Transport: config.TransportTCP, Port: 60128},
			wantErr: true,
		},
		{
			name:    "serial without device",
			cfg:     config.DeviceConfig{Transport: config.TransportSerial},
			wantErr: true,
		},
		{
			name:    "unknown transport",
			cfg:     config.DeviceConfig{Transport: "udp", Host: "x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewDialer(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewDialer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("NewDialer() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSessionConfigFrom(t *testing.T) {
	got := SessionConfigFrom(config.DeviceConfig{MaxAttempts: 3, RetryBackoffMS: 250})
	want := SessionConfig{MaxAttempts: 3, RetryBackoff: 250 * time.Millisecond}
	if got != want {
		t.Errorf("SessionConfigFrom() = %+v, want %+v", got, want)
	}
}
