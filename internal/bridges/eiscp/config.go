package eiscp

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/mtyszkiewicz/onkyo-ctl/internal/infrastructure/config"
)

// NewDialer returns the dialer for the configured transport.
func NewDialer(cfg config.DeviceConfig) (Dialer, error) {
	responseTimeout := time.Duration(cfg.ResponseTimeoutMS) * time.Millisecond

	switch cfg.Transport {
	case config.TransportTCP, "":
		if cfg.Host == "" {
			return nil, fmt.Errorf("device host is required for tcp transport")
		}
		return TCPDialer{
			Address:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			ConnectTimeout:  time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond,
			ResponseTimeout: responseTimeout,
		}, nil
	case config.TransportSerial:
		if cfg.SerialDevice == "" {
			return nil, fmt.Errorf("serial device is required for serial transport")
		}
		return SerialDialer{
			Device:          cfg.SerialDevice,
			BaudRate:        cfg.BaudRate,
			ResponseTimeout: responseTimeout,
		}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// SessionConfigFrom maps device configuration onto the retry policy.
func SessionConfigFrom(cfg config.DeviceConfig) SessionConfig {
	return SessionConfig{
		MaxAttempts:  cfg.MaxAttempts,
		RetryBackoff: time.Duration(cfg.RetryBackoffMS) * time.Millisecond,
	}
}
