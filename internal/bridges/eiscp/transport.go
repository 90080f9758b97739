package eiscp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"go.bug.st/serial"
)

// Default timeouts for a single exchange.
const (
	// defaultConnectTimeout bounds opening the connection.
	defaultConnectTimeout = 1 * time.Second

	// defaultResponseTimeout bounds the write and every read of an exchange.
	defaultResponseTimeout = 5 * time.Second

	// defaultBaudRate is the rate Onkyo RS-232 ports use.
	defaultBaudRate = 9600

	// serialReadChunk is the read buffer size for serial ports.
	serialReadChunk = 64
)

// Conn is one open connection to the receiver, used for a single exchange.
type Conn interface {
	// WriteMessage sends an ISCP message.
	WriteMessage(msg string) error

	// ReadMessage returns the next ISCP message sent by the receiver.
	ReadMessage() (string, error)

	Close() error
}

// Dialer opens connections to the receiver.
// This allows substituting a fake receiver in tests.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// TCPDialer dials the receiver's eISCP port.
type TCPDialer struct {
	// Address is host:port, usually port 60128.
	Address string

	// ConnectTimeout bounds the TCP handshake. Default: 1 second.
	ConnectTimeout time.Duration

	// ResponseTimeout bounds the rest of the exchange. Default: 5 seconds.
	ResponseTimeout time.Duration
}

// Dial implements Dialer.
func (d TCPDialer) Dial(ctx context.Context) (Conn, error) {
	connectTimeout := d.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = defaultConnectTimeout
	}
	responseTimeout := d.ResponseTimeout
	if responseTimeout == 0 {
		responseTimeout = defaultResponseTimeout
	}

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", d.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, d.Address, err)
	}

	return &tcpConn{conn: conn, timeout: responseTimeout}, nil
}

type tcpConn struct {
	conn    net.Conn
	timeout time.Duration
}

// WriteMessage starts the exchange deadline. Every later read shares it, so
// a receiver chattering unrelated status updates cannot hold the exchange open.
func (c *tcpConn) WriteMessage(msg string) error {
	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	if _, err := c.conn.Write(EncodePacket(msg)); err != nil {
		return fmt.Errorf("write: %w", wrapTimeout(err))
	}
	return nil
}

func (c *tcpConn) ReadMessage() (string, error) {
	msg, err := ReadPacket(c.conn)
	if err != nil {
		return "", wrapTimeout(err)
	}
	return msg, nil
}

func (c *tcpConn) Close() error {
	return c.conn.Close()
}

// SerialDialer opens the receiver's RS-232 port.
type SerialDialer struct {
	// Device is the port name, e.g. "/dev/ttyUSB0".
	Device string

	// BaudRate defaults to 9600.
	BaudRate int

	// ResponseTimeout bounds each read. Default: 5 seconds.
	ResponseTimeout time.Duration
}

// Dial implements Dialer.
func (d SerialDialer) Dial(_ context.Context) (Conn, error) {
	baud := d.BaudRate
	if baud == 0 {
		baud = defaultBaudRate
	}
	timeout := d.ResponseTimeout
	if timeout == 0 {
		timeout = defaultResponseTimeout
	}

	port, err := serial.Open(d.Device, &serial.Mode{
		BaudRate: baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, d.Device, err)
	}

	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("%w: set read timeout: %w", ErrConnectionFailed, err)
	}

	// Drop anything the receiver sent while nobody was listening.
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("%w: reset input buffer: %w", ErrConnectionFailed, err)
	}

	return &serialConn{port: port}, nil
}

type serialConn struct {
	port serial.Port
	buf  []byte
}

func (c *serialConn) WriteMessage(msg string) error {
	if _, err := c.port.Write(EncodeSerial(msg)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// ReadMessage reads up to the next EOF terminator. A read returning no data
// means the port's read timeout expired.
func (c *serialConn) ReadMessage() (string, error) {
	chunk := make([]byte, serialReadChunk)
	for {
		if i := bytes.IndexByte(c.buf, terminatorEOF); i >= 0 {
			frame := c.buf[:i]
			c.buf = c.buf[i+1:]
			return unwrapMessage(bytes.TrimLeft(frame, "\r\n"))
		}

		if len(c.buf) > maxDataSize {
			return "", fmt.Errorf("%w: no terminator in %d bytes", ErrInvalidPacket, len(c.buf))
		}

		n, err := c.port.Read(chunk)
		if err != nil {
			return "", fmt.Errorf("read: %w", err)
		}
		if n == 0 {
			return "", ErrTimeout
		}
		c.buf = append(c.buf, chunk[:n]...)
	}
}

func (c *serialConn) Close() error {
	return c.port.Close()
}

// wrapTimeout marks deadline expiry with ErrTimeout.
func wrapTimeout(err error) error {
	var netErr net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
