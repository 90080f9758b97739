package eiscp

import (
	"errors"
	"testing"
)

func TestFormatLevel_RoundTrip(t *testing.T) {
	for level := -8; level <= 8; level++ {
		encoded, err := FormatLevel(level)
		if err != nil {
			t.Fatalf("FormatLevel(%d) error = %v", level, err)
		}
		if len(encoded) != 3 {
			t.Errorf("FormatLevel(%d) = %q, want 3 characters", level, encoded)
		}
		decoded, err := ParseLevel(encoded)
		if err != nil {
			t.Fatalf("ParseLevel(%q) error = %v", encoded, err)
		}
		if decoded != level {
			t.Errorf("ParseLevel(FormatLevel(%d)) = %d", level, decoded)
		}
	}
}

func TestFormatLevel(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{-6, "-06"},
		{0, "+00"},
		{7, "+07"},
		{-12, "-12"},
	}

	for _, tt := range tests {
		got, err := FormatLevel(tt.level)
		if err != nil {
			t.Fatalf("FormatLevel(%d) error = %v", tt.level, err)
		}
		if got != tt.want {
			t.Errorf("FormatLevel(%d) = %q, want %q", tt.level, got, tt.want)
		}
	}

	if _, err := FormatLevel(100); !errors.Is(err, ErrInvalidCommand) {
		t.Errorf("FormatLevel(100) error = %v, want ErrInvalidCommand", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"full response", "SWL-06", -6, false},
		{"zero", "SWL+00", 0, false},
		{"with terminators", "SWL+03\x1a\r\n", 3, false},
		{"bare level", "-08", -8, false},
		{"no sign", "SWL006", 0, true},
		{"not numeric", "SWL+0A", 0, true},
		{"too short", "+1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrDecodingFailed) {
				t.Errorf("ParseLevel(%q) error = %v, want ErrDecodingFailed", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestCommand_Encode(t *testing.T) {
	tests := []struct {
		cmd     string
		want    string
		wantErr bool
	}{
		{"system-power=query", "PWRQSTN", false},
		{"system-power=on", "PWR01", false},
		{"system-power=off", "PWR00", false},
		{"system-power=standby,off", "PWR00", false},
		{"master-volume=query", "MVLQSTN", false},
		{"master-volume=26", "MVL1A", false},
		{"master-volume=0", "MVL00", false},
		{"master-volume=level-up", "MVLUP", false},
		{"master-volume=level-down", "MVLDOWN", false},
		{"master-volume=101", "", true},
		{"master-volume=loud", "", true},
		{"input-selector=query", "SLIQSTN", false},
		{"input-selector=tv", "SLI12", false},
		{"input-selector=video2,cbl,sat", "SLI01", false},
		{"input-selector=cbl", "SLI01", false},
		{"input-selector=dvd,bd,dvd", "SLI10", false},
		{"input-selector=phono", "SLI22", false},
		{"input-selector=2F", "SLI2F", false},
		{"input-selector=cassette", "", true},
		{"system-power=maybe", "", true},
		{"tone-front=query", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			c, err := ParseCommand(tt.cmd)
			if err != nil {
				t.Fatalf("ParseCommand(%q) error = %v", tt.cmd, err)
			}
			got, err := c.Encode()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Encode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidCommand) {
				t.Errorf("Encode() error = %v, want ErrInvalidCommand", err)
			}
			if got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseCommand_Invalid(t *testing.T) {
	for _, s := range []string{"", "system-power", "=on", "system-power=", "a=b=c"} {
		if _, err := ParseCommand(s); !errors.Is(err, ErrInvalidCommand) {
			t.Errorf("ParseCommand(%q) error = %v, want ErrInvalidCommand", s, err)
		}
	}
}

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		msg     string
		want    string
		wantErr bool
	}{
		{"PWR01", "system-power=on", false},
		{"PWR00", "system-power=standby,off", false},
		{"MVL1A", "master-volume=26", false},
		{"MVL00", "master-volume=0", false},
		{"SLI12", "input-selector=tv", false},
		{"SLI01", "input-selector=video2,cbl,sat", false},
		{"SLI10", "input-selector=dvd,bd,dvd", false},
		{"SLI80", "input-selector=80", false},
		{"MVLXX", "", true},
		{"PWR07", "", true},
		{"SWL+01", "", true},
		{"PW", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			got, err := DecodeResponse(tt.msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeResponse(%q) error = %v, wantErr %v", tt.msg, err, tt.wantErr)
			}
			if err == nil && got.String() != tt.want {
				t.Errorf("DecodeResponse(%q) = %q, want %q", tt.msg, got.String(), tt.want)
			}
		})
	}
}

func TestCommand_Int(t *testing.T) {
	c := Command{Key: KeyMasterVolume, Value: "26"}
	if n, err := c.Int(); err != nil || n != 26 {
		t.Errorf("Int() = %d, %v; want 26, nil", n, err)
	}

	c.Value = "tv"
	if _, err := c.Int(); !errors.Is(err, ErrDecodingFailed) {
		t.Errorf("Int() error = %v, want ErrDecodingFailed", err)
	}
}

func TestSubwooferMessages(t *testing.T) {
	if MsgSubwooferQuery != "SWLQSTN" || MsgSubwooferUp != "SWLUP" || MsgSubwooferDown != "SWLDOWN" {
		t.Errorf("unexpected subwoofer messages %q %q %q", MsgSubwooferQuery, MsgSubwooferUp, MsgSubwooferDown)
	}

	got, err := SubwooferSet(-6)
	if err != nil || got != "SWL-06" {
		t.Errorf("SubwooferSet(-6) = %q, %v; want SWL-06", got, err)
	}
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		msg     string
		wantErr bool
	}{
		{"PWRQSTN", false},
		{"SWL-06", false},
		{"SLI12", false},
		{"PW", true},
		{"pwr01", true},
		{"PWR01\r", true},
	}

	for _, tt := range tests {
		if err := ValidateMessage(tt.msg); (err != nil) != tt.wantErr {
			t.Errorf("ValidateMessage(%q) error = %v, wantErr %v", tt.msg, err, tt.wantErr)
		}
	}
}

func TestInputSelectors(t *testing.T) {
	inputs := InputSelectors()
	if len(inputs) != len(inputSelectorValues) {
		t.Fatalf("len(InputSelectors()) = %d, want %d", len(inputs), len(inputSelectorValues))
	}

	seen := make(map[string]bool)
	for _, in := range inputs {
		if seen[in.Code] {
			t.Errorf("duplicate input code %q", in.Code)
		}
		seen[in.Code] = true

		c := Command{Key: KeyInputSelector, Value: in.Name}
		msg, err := c.Encode()
		if err != nil {
			t.Errorf("Encode(%q) error = %v", in.Name, err)
			continue
		}
		if msg != PrefixInputSelector+in.Code {
			t.Errorf("Encode(%q) = %q, want %q", in.Name, msg, PrefixInputSelector+in.Code)
		}
	}
}
