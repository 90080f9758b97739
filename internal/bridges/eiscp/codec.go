package eiscp

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is a named command in KEY=VALUE form, for example
// "master-volume=level-up". Responses decode into the same form.
type Command struct {
	Key   string
	Value string
}

// ParseCommand splits a KEY=VALUE string. The value may itself contain
// commas (input selector groups) but not another '='.
func ParseCommand(s string) (Command, error) {
	key, value, ok := strings.Cut(strings.TrimSpace(s), "=")
	if !ok || key == "" || value == "" || strings.Contains(value, "=") {
		return Command{}, fmt.Errorf("%w: %q is not KEY=VALUE", ErrInvalidCommand, s)
	}
	return Command{Key: key, Value: value}, nil
}

// String returns the KEY=VALUE form.
func (c Command) String() string {
	return c.Key + "=" + c.Value
}

// Int parses the value as a decimal integer.
func (c Command) Int() (int, error) {
	n, err := strconv.Atoi(c.Value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s value %q is not an integer", ErrDecodingFailed, c.Key, c.Value)
	}
	return n, nil
}

// Encode converts the command into an ISCP message.
func (c Command) Encode() (string, error) {
	cd, ok := codecs[c.Key]
	if !ok {
		return "", fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, c.Key)
	}
	param, err := cd.encode(c.Value)
	if err != nil {
		return "", err
	}
	return cd.prefix + param, nil
}

// DecodeResponse converts an ISCP response for a named command back into
// KEY=VALUE form.
func DecodeResponse(msg string) (Command, error) {
	if len(msg) < 3 {
		return Command{}, fmt.Errorf("%w: response %q too short", ErrDecodingFailed, msg)
	}
	key, ok := prefixKeys[msg[:3]]
	if !ok {
		return Command{}, fmt.Errorf("%w: no named command for prefix %q", ErrDecodingFailed, msg[:3])
	}
	value, err := codecs[key].decode(msg[3:])
	if err != nil {
		return Command{}, err
	}
	return Command{Key: key, Value: value}, nil
}

type codec struct {
	prefix string
	encode func(value string) (string, error)
	decode func(param string) (string, error)
}

var codecs = map[string]codec{
	KeySystemPower: {
		prefix: PrefixPower,
		encode: encodeGroup(KeySystemPower, powerValues, false),
		decode: decodeGroup(KeySystemPower, powerValues, false),
	},
	KeyMasterVolume: {
		prefix: PrefixMasterVolume,
		encode: encodeVolume,
		decode: decodeVolume,
	},
	KeyInputSelector: {
		prefix: PrefixInputSelector,
		encode: encodeGroup(KeyInputSelector, inputSelectorValues, true),
		decode: decodeGroup(KeyInputSelector, inputSelectorValues, true),
	},
}

var prefixKeys = func() map[string]string {
	m := make(map[string]string, len(codecs))
	for key, cd := range codecs {
		m[cd.prefix] = key
	}
	return m
}()

// encodeGroup resolves a name (or a whole joined group) to its parameter.
// With rawCodes set, a two digit hex parameter is passed through so inputs
// missing from the table stay reachable.
func encodeGroup(key string, groups []valueGroup, rawCodes bool) func(string) (string, error) {
	return func(value string) (string, error) {
		if value == ValueQuery {
			return paramQuery, nil
		}
		if g, ok := lookupName(groups, value); ok {
			return g.code, nil
		}
		if rawCodes && isHexCode(value) {
			return value, nil
		}
		return "", fmt.Errorf("%w: %s does not accept %q", ErrInvalidCommand, key, value)
	}
}

// decodeGroup maps a parameter to its joined names. Unknown parameters are
// returned as-is when rawCodes is set.
func decodeGroup(key string, groups []valueGroup, rawCodes bool) func(string) (string, error) {
	return func(param string) (string, error) {
		if g, ok := lookupCode(groups, param); ok {
			return g.joined(), nil
		}
		if rawCodes && param != "" {
			return param, nil
		}
		return "", fmt.Errorf("%w: unexpected %s parameter %q", ErrDecodingFailed, key, param)
	}
}

func encodeVolume(value string) (string, error) {
	switch value {
	case ValueQuery:
		return paramQuery, nil
	case ValueLevelUp:
		return paramUp, nil
	case ValueLevelDown:
		return paramDown, nil
	}

	level, err := strconv.Atoi(value)
	if err != nil {
		return "", fmt.Errorf("%w: master-volume does not accept %q", ErrInvalidCommand, value)
	}
	if level < 0 || level > MaxVolumeParam {
		return "", fmt.Errorf("%w: master-volume %d outside 0-%d", ErrInvalidCommand, level, MaxVolumeParam)
	}
	return fmt.Sprintf("%02X", level), nil
}

func decodeVolume(param string) (string, error) {
	level, err := strconv.ParseUint(param, 16, 8)
	if err != nil {
		return "", fmt.Errorf("%w: master-volume parameter %q", ErrDecodingFailed, param)
	}
	return strconv.FormatUint(level, 10), nil
}

func isHexCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}

// Subwoofer level messages. The subwoofer family is addressed by prefix and
// decoded with ParseLevel rather than through the named command table.
const (
	MsgSubwooferQuery = PrefixSubwoofer + paramQuery
	MsgSubwooferUp    = PrefixSubwoofer + paramUp
	MsgSubwooferDown  = PrefixSubwoofer + paramDown
)

// FormatLevel encodes a signed level as sign plus two zero-padded digits:
// -6 becomes "-06" and 0 becomes "+00".
func FormatLevel(level int) (string, error) {
	if level < -99 || level > 99 {
		return "", fmt.Errorf("%w: level %d does not fit two digits", ErrInvalidCommand, level)
	}
	if level < 0 {
		return fmt.Sprintf("-%02d", -level), nil
	}
	return fmt.Sprintf("+%02d", level), nil
}

// ParseLevel decodes the last three characters of s with the FormatLevel
// rules.
func ParseLevel(s string) (int, error) {
	s = strings.TrimRight(s, "\x1a\r\n")
	if len(s) < 3 {
		return 0, fmt.Errorf("%w: level %q too short", ErrDecodingFailed, s)
	}
	tail := s[len(s)-3:]

	var sign int
	switch tail[0] {
	case '+':
		sign = 1
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("%w: level %q has no sign", ErrDecodingFailed, tail)
	}

	if tail[1] < '0' || tail[1] > '9' || tail[2] < '0' || tail[2] > '9' {
		return 0, fmt.Errorf("%w: level %q is not numeric", ErrDecodingFailed, tail)
	}
	return sign * int((tail[1]-'0')*10+(tail[2]-'0')), nil
}

// SubwooferSet returns the message that sets the subwoofer level.
func SubwooferSet(level int) (string, error) {
	param, err := FormatLevel(level)
	if err != nil {
		return "", err
	}
	return PrefixSubwoofer + param, nil
}

// ValidateMessage checks that msg looks like an ISCP message: a three letter
// upper-case prefix followed by printable ASCII.
func ValidateMessage(msg string) error {
	if len(msg) < 3 {
		return fmt.Errorf("%w: message %q too short", ErrInvalidCommand, msg)
	}
	for i := 0; i < 3; i++ {
		if msg[i] < 'A' || msg[i] > 'Z' {
			return fmt.Errorf("%w: message %q has no command prefix", ErrInvalidCommand, msg)
		}
	}
	for i := 3; i < len(msg); i++ {
		if msg[i] < 0x20 || msg[i] > 0x7E {
			return fmt.Errorf("%w: message %q contains control characters", ErrInvalidCommand, msg)
		}
	}
	return nil
}
