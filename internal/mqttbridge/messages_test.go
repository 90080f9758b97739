package mqttbridge

import (
	"encoding/json"
	"testing"
)

func TestCommandMessage_IntValue(t *testing.T) {
	tests := []struct {
		payload string
		want    int
		wantErr bool
	}{
		{`{"value":25}`, 25, false},
		{`{"value":-4}`, -4, false},
		{`{"value":"25"}`, 0, true},
		{`{"value":2.5}`, 0, true},
		{`{}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			var cmd CommandMessage
			if err := json.Unmarshal([]byte(tt.payload), &cmd); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got, err := cmd.IntValue()
			if (err != nil) != tt.wantErr {
				t.Fatalf("IntValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("IntValue() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCommandMessage_StringValue(t *testing.T) {
	tests := []struct {
		payload string
		want    string
		wantErr bool
	}{
		{`{"value":"tv"}`, "tv", false},
		{`{"value":""}`, "", true},
		{`{"value":12}`, "", true},
		{`{"id":"x"}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			var cmd CommandMessage
			if err := json.Unmarshal([]byte(tt.payload), &cmd); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got, err := cmd.StringValue()
			if (err != nil) != tt.wantErr {
				t.Fatalf("StringValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("StringValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewAckError(t *testing.T) {
	ack := NewAckError(CommandMessage{ID: "abc"}, "volume/set", ErrCodeDeviceBusy, "busy")

	data, err := json.Marshal(ack)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["status"] != "failed" || raw["command_id"] != "abc" {
		t.Errorf("ack = %v", raw)
	}
	if _, ok := raw["result"]; ok {
		t.Error("failed ack carries a result")
	}
}
