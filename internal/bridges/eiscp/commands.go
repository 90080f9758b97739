package eiscp

import (
	"fmt"
	"strings"
)

// Named command keys.
const (
	KeySystemPower   = "system-power"
	KeyMasterVolume  = "master-volume"
	KeyInputSelector = "input-selector"
)

// Common command values.
const (
	ValueQuery     = "query"
	ValueOn        = "on"
	ValueOff       = "off"
	ValueLevelUp   = "level-up"
	ValueLevelDown = "level-down"
)

// ISCP command prefixes.
const (
	PrefixPower         = "PWR"
	PrefixMasterVolume  = "MVL"
	PrefixInputSelector = "SLI"
	PrefixSubwoofer     = "SWL"
)

// ISCP parameters shared by several commands.
const (
	paramQuery    = "QSTN"
	paramUp       = "UP"
	paramDown     = "DOWN"
	paramRejected = "N/A"
)

// MaxVolumeParam is the largest master volume the codec will encode.
const MaxVolumeParam = 100

// valueGroup maps an ISCP parameter to the names the receiver uses for it.
// A parameter may have several names; the first is the preferred one.
type valueGroup struct {
	code  string
	names []string
}

// joined returns the canonical comma-joined form of the group.
func (g valueGroup) joined() string {
	return strings.Join(g.names, ",")
}

var powerValues = []valueGroup{
	{code: "00", names: []string{"standby", "off"}},
	{code: "01", names: []string{"on"}},
}

var inputSelectorValues = []valueGroup{
	{code: "00", names: []string{"video1", "vcr/dvr", "stb/dvr"}},
	{code: "01", names: []string{"video2", "cbl", "sat"}},
	{code: "02", names: []string{"video3", "game/tv", "game", "game1"}},
	{code: "03", names: []string{"video4", "aux1"}},
	{code: "04", names: []string{"video5", "aux2", "game2"}},
	{code: "05", names: []string{"video6", "pc"}},
	{code: "10", names: []string{"dvd", "bd", "dvd"}},
	{code: "12", names: []string{"tv"}},
	{code: "20", names: []string{"tape-1", "tv/tape"}},
	{code: "22", names: []string{"phono"}},
	{code: "23", names: []string{"cd", "tv/cd"}},
	{code: "24", names: []string{"fm"}},
	{code: "25", names: []string{"am"}},
	{code: "26", names: []string{"tuner"}},
	{code: "27", names: []string{"music-server", "p4s", "dlna"}},
	{code: "28", names: []string{"internet-radio", "iradio-favorite"}},
	{code: "29", names: []string{"usb", "usb(front)"}},
	{code: "2A", names: []string{"usb(rear)"}},
	{code: "2B", names: []string{"network", "net"}},
	{code: "2C", names: []string{"usb(toggle)"}},
	{code: "2D", names: []string{"airplay"}},
	{code: "2E", names: []string{"bluetooth"}},
}

// lookupCode returns the group for an ISCP parameter.
func lookupCode(groups []valueGroup, code string) (valueGroup, bool) {
	for _, g := range groups {
		if g.code == code {
			return g, true
		}
	}
	return valueGroup{}, false
}

// lookupName resolves either a whole comma-joined group or one of its names.
func lookupName(groups []valueGroup, name string) (valueGroup, bool) {
	for _, g := range groups {
		if g.joined() == name {
			return g, true
		}
	}
	for _, g := range groups {
		for _, n := range g.names {
			if n == name {
				return g, true
			}
		}
	}
	return valueGroup{}, false
}

// InputSelector describes one input the receiver can switch to.
type InputSelector struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// InputSelectors lists the known inputs in code order. Name is the
// canonical comma-joined form returned by input selector queries.
func InputSelectors() []InputSelector {
	out := make([]InputSelector, 0, len(inputSelectorValues))
	for _, g := range inputSelectorValues {
		out = append(out, InputSelector{Code: g.code, Name: g.joined()})
	}
	return out
}

// CanonicalInputSelector returns the selector an input query reports after
// switching to selector. Names, joined groups and table codes resolve to the
// joined group; a two digit hex code outside the table is returned as-is.
func CanonicalInputSelector(selector string) (string, error) {
	if g, ok := lookupName(inputSelectorValues, selector); ok {
		return g.joined(), nil
	}
	if isHexCode(selector) {
		if g, ok := lookupCode(inputSelectorValues, selector); ok {
			return g.joined(), nil
		}
		return selector, nil
	}
	return "", fmt.Errorf("%w: unknown input selector %q", ErrInvalidCommand, selector)
}
