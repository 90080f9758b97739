//go:build integration

package mqtt

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// Integration tests against a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func TestIntegration_Connect(t *testing.T) {
	client, err := Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestIntegration_ConnectRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19998

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "onkyo-ctl-int-sub-track"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topics := []string{
		client.Topics().Command("power/on"),
		client.Topics().Command("volume/set"),
		client.Topics().AllCommands(),
	}
	handler := func(string, []byte) error { return nil }

	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, handler); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}
	if client.SubscriptionCount() != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", client.SubscriptionCount(), len(topics))
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription(topics[0]) {
		t.Errorf("HasSubscription(%s) = true after unsubscribe", topics[0])
	}
}

func TestIntegration_CommandRoundtrip(t *testing.T) {
	cfg := testConfig()

	cfg.Broker.ClientID = "onkyo-ctl-int-pub"
	pub, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pub.Close()

	cfg.Broker.ClientID = "onkyo-ctl-int-sub"
	sub, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer sub.Close()

	type delivery struct {
		topic   string
		payload string
	}
	received := make(chan delivery, 1)
	var once sync.Once

	err = sub.Subscribe(sub.Topics().AllCommands(), 1, func(topic string, p []byte) error {
		once.Do(func() { received <- delivery{topic, string(p)} })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if err := pub.PublishJSON(pub.Topics().Command("volume/set"), map[string]any{"id": "c1", "value": 25}, false); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	select {
	case d := <-received:
		if op, ok := sub.Topics().CommandOperation(d.topic); !ok || op != "volume/set" {
			t.Errorf("operation = %q, want volume/set", op)
		}
		if !strings.Contains(d.payload, `"value":25`) {
			t.Errorf("payload = %s", d.payload)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for command")
	}
}
