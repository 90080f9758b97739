package eiscp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultMaxAttempts is the number of tries an exchange gets.
	DefaultMaxAttempts = 5

	// DefaultRetryBackoff is the pause between tries.
	DefaultRetryBackoff = 500 * time.Millisecond

	// maxUnsolicited bounds how many unrelated messages are skipped while
	// waiting for a reply.
	maxUnsolicited = 32
)

// SessionConfig holds the retry policy.
type SessionConfig struct {
	// MaxAttempts is the number of tries per exchange. Default: 5.
	MaxAttempts int

	// RetryBackoff is the fixed delay between tries. Zero disables it.
	RetryBackoff time.Duration
}

// SessionStats holds operational statistics.
type SessionStats struct {
	Exchanges    uint64    `json:"exchanges"`
	Attempts     uint64    `json:"attempts"`
	Failures     uint64    `json:"failures"`
	Rejections   uint64    `json:"rejections"`
	LastActivity time.Time `json:"last_activity"`
	LastError    string    `json:"last_error,omitempty"`
}

// ExchangeRecord describes a finished exchange.
type ExchangeRecord struct {
	Message  string
	Response string
	Attempts int
	Duration time.Duration
	Err      error
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Session performs request/response exchanges with the receiver, one at a
// time, on a fresh connection per attempt.
type Session struct {
	dialer Dialer
	cfg    SessionConfig

	// mu serialises exchanges; the receiver handles one client at a time.
	mu sync.Mutex

	logger   Logger
	loggerMu sync.RWMutex

	onExchange   func(ExchangeRecord)
	onExchangeMu sync.RWMutex

	exchanges    atomic.Uint64
	attempts     atomic.Uint64
	failures     atomic.Uint64
	rejections   atomic.Uint64
	lastActivity atomic.Int64
	lastError    atomic.Value // string
}

// NewSession creates a Session that dials through d.
func NewSession(d Dialer, cfg SessionConfig) *Session {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}
	return &Session{dialer: d, cfg: cfg}
}

// SetLogger sets the logger used for exchange logging.
func (s *Session) SetLogger(l Logger) {
	s.loggerMu.Lock()
	defer s.loggerMu.Unlock()
	s.logger = l
}

// SetOnExchange registers a callback run after every exchange, successful
// or not. The callback runs on the caller's goroutine and must not block.
func (s *Session) SetOnExchange(fn func(ExchangeRecord)) {
	s.onExchangeMu.Lock()
	defer s.onExchangeMu.Unlock()
	s.onExchange = fn
}

// Command encodes a KEY=VALUE command, exchanges it and decodes the reply.
// A reply that cannot be decoded fails the attempt and is retried.
func (s *Session) Command(ctx context.Context, cmd string) (Command, error) {
	c, err := ParseCommand(cmd)
	if err != nil {
		return Command{}, err
	}
	msg, err := c.Encode()
	if err != nil {
		return Command{}, err
	}

	var decoded Command
	_, err = s.exchange(ctx, msg, func(reply string) error {
		var err error
		decoded, err = DecodeResponse(reply)
		return err
	})
	if err != nil {
		return Command{}, err
	}
	return decoded, nil
}

// Level exchanges a raw message whose reply carries a signed level, such as
// SWL, and parses it. Unparsable replies are retried like Command.
func (s *Session) Level(ctx context.Context, msg string) (int, error) {
	var level int
	_, err := s.exchange(ctx, msg, func(reply string) error {
		var err error
		level, err = ParseLevel(reply)
		return err
	})
	if err != nil {
		return 0, err
	}
	return level, nil
}

// Exchange sends one ISCP message and returns the receiver's reply to it.
//
// Each attempt dials a new connection which is closed before the attempt
// returns. Failed attempts are retried after RetryBackoff; once MaxAttempts
// is reached the last failure is returned wrapped in ErrTransport. An "N/A"
// reply returns ErrRejected without retrying.
func (s *Session) Exchange(ctx context.Context, msg string) (string, error) {
	return s.exchange(ctx, msg, nil)
}

// exchange runs the retry loop. When decode is set it runs on every reply
// inside the loop; a decode error counts as a failed attempt.
func (s *Session) exchange(ctx context.Context, msg string, decode func(reply string) error) (string, error) {
	if err := ValidateMessage(msg); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.exchanges.Add(1)
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if attempt > 1 && s.cfg.RetryBackoff > 0 {
			select {
			case <-ctx.Done():
				return "", s.finish(msg, "", attempt-1, start, fmt.Errorf("%w: %w", ErrTransport, ctx.Err()))
			case <-time.After(s.cfg.RetryBackoff):
			}
		}

		s.attempts.Add(1)
		attemptStart := time.Now()
		resp, err := s.attempt(ctx, msg)
		s.lastActivity.Store(time.Now().Unix())
		if err == nil && decode != nil {
			err = decode(resp)
		}

		switch {
		case err == nil:
			s.logInfo("exchange", "command", msg, "response", resp, "attempt", attempt,
				"duration_ms", time.Since(attemptStart).Milliseconds())
			return resp, s.finish(msg, resp, attempt, start, nil)

		case errors.Is(err, ErrRejected):
			s.rejections.Add(1)
			s.logWarn("command rejected", "command", msg, "response", resp, "attempt", attempt)
			return "", s.finish(msg, resp, attempt, start, err)
		}

		lastErr = err
		s.logWarn("exchange attempt failed", "command", msg, "response", resp, "attempt", attempt,
			"max_attempts", s.cfg.MaxAttempts, "error", err)
	}

	s.failures.Add(1)
	err := fmt.Errorf("%w: %s failed after %d attempts: %w", ErrTransport, msg, s.cfg.MaxAttempts, lastErr)
	s.logError("exchange failed", "command", msg, "error", lastErr)
	return "", s.finish(msg, "", s.cfg.MaxAttempts, start, err)
}

// attempt runs a single dial/write/read cycle.
func (s *Session) attempt(ctx context.Context, msg string) (string, error) {
	conn, err := s.dialer.Dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if err := conn.WriteMessage(msg); err != nil {
		return "", err
	}

	prefix := msg[:3]
	for skipped := 0; skipped <= maxUnsolicited; skipped++ {
		reply, err := conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if !strings.HasPrefix(reply, prefix) {
			s.logDebug("skipping unsolicited message", "command", msg, "message", reply)
			continue
		}
		if reply[len(prefix):] == paramRejected {
			return reply, fmt.Errorf("%w: %s", ErrRejected, msg)
		}
		return reply, nil
	}
	return "", fmt.Errorf("%w: no %s reply among %d messages", ErrInvalidPacket, prefix, maxUnsolicited)
}

// finish records the outcome of an exchange and returns err unchanged.
func (s *Session) finish(msg, resp string, attempts int, start time.Time, err error) error {
	if err != nil {
		s.lastError.Store(err.Error())
	}

	s.onExchangeMu.RLock()
	fn := s.onExchange
	s.onExchangeMu.RUnlock()

	if fn != nil {
		fn(ExchangeRecord{
			Message:  msg,
			Response: resp,
			Attempts: attempts,
			Duration: time.Since(start),
			Err:      err,
		})
	}
	return err
}

// Stats returns current statistics.
func (s *Session) Stats() SessionStats {
	stats := SessionStats{
		Exchanges:  s.exchanges.Load(),
		Attempts:   s.attempts.Load(),
		Failures:   s.failures.Load(),
		Rejections: s.rejections.Load(),
	}
	if ts := s.lastActivity.Load(); ts > 0 {
		stats.LastActivity = time.Unix(ts, 0)
	}
	if v, ok := s.lastError.Load().(string); ok {
		stats.LastError = v
	}
	return stats
}

func (s *Session) getLogger() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

func (s *Session) logDebug(msg string, kv ...any) {
	if l := s.getLogger(); l != nil {
		l.Debug(msg, kv...)
	}
}

func (s *Session) logInfo(msg string, kv ...any) {
	if l := s.getLogger(); l != nil {
		l.Info(msg, kv...)
	}
}

func (s *Session) logWarn(msg string, kv ...any) {
	if l := s.getLogger(); l != nil {
		l.Warn(msg, kv...)
	}
}

func (s *Session) logError(msg string, kv ...any) {
	if l := s.getLogger(); l != nil {
		l.Error(msg, kv...)
	}
}
