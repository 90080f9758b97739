package eiscp

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// eISCP frame layout.
//
//	Byte 0-3:   "ISCP"
//	Byte 4-7:   header size (big-endian, always 16)
//	Byte 8-11:  data size (big-endian)
//	Byte 12:    version (0x01)
//	Byte 13-15: reserved
//	Byte 16+:   data, "!1" + message + terminator
const (
	headerMagic   = "ISCP"
	headerSize    = 16
	headerVersion = 0x01

	// startChars precede every ISCP message; '1' addresses a receiver.
	startChars = "!1"

	// maxDataSize bounds a single frame. Real messages are a few dozen bytes.
	maxDataSize = 4096
)

// Message terminators. Requests end with CR; receivers answer with EOF,
// optionally followed by CR LF.
const (
	terminatorCR  = '\r'
	terminatorEOF = 0x1A
)

// EncodePacket wraps an ISCP message into an eISCP frame.
func EncodePacket(msg string) []byte {
	data := startChars + msg + string(rune(terminatorCR))

	buf := make([]byte, headerSize+len(data))
	copy(buf[0:4], headerMagic)
	binary.BigEndian.PutUint32(buf[4:8], headerSize)
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(data))) //nolint:gosec // bounded by message length
	buf[12] = headerVersion
	copy(buf[headerSize:], data)

	return buf
}

// ReadPacket reads one eISCP frame from r and returns the ISCP message it
// carries, without start characters or terminators.
func ReadPacket(r io.Reader) (string, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return "", fmt.Errorf("read header: %w", err)
	}

	if string(header[0:4]) != headerMagic {
		return "", fmt.Errorf("%w: bad magic %q", ErrInvalidPacket, header[0:4])
	}

	hdrSize := binary.BigEndian.Uint32(header[4:8])
	if hdrSize < headerSize {
		return "", fmt.Errorf("%w: header size %d", ErrInvalidPacket, hdrSize)
	}

	dataSize := binary.BigEndian.Uint32(header[8:12])
	if dataSize > maxDataSize {
		return "", fmt.Errorf("%w: data size %d exceeds %d", ErrInvalidPacket, dataSize, maxDataSize)
	}

	// Skip any header extension beyond the 16 bytes we know about.
	if extra := int64(hdrSize) - headerSize; extra > 0 {
		if _, err := io.CopyN(io.Discard, r, extra); err != nil {
			return "", fmt.Errorf("read header extension: %w", err)
		}
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", fmt.Errorf("read data: %w", err)
	}

	return unwrapMessage(data)
}

// EncodeSerial frames an ISCP message for the RS-232 port.
func EncodeSerial(msg string) []byte {
	return []byte(startChars + msg + string(rune(terminatorCR)))
}

// unwrapMessage strips the start characters and any trailing terminators
// from raw message data.
func unwrapMessage(data []byte) (string, error) {
	s := strings.TrimRight(string(data), "\x1a\r\n\x00")
	if !strings.HasPrefix(s, startChars) {
		return "", fmt.Errorf("%w: missing start characters in %q", ErrInvalidPacket, s)
	}
	return s[len(startChars):], nil
}
