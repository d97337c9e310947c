package mqttbus

import (
	"context"
	"strings"
	"testing"
)

func TestBrokerURL(t *testing.T) {
	for _, tc := range []struct {
		host string
		port int
		tls  bool
		want string
	}{
		{"broker.hivemq.com", 1883, false, "tcp://broker.hivemq.com:1883"},
		{"broker.hivemq.com", 8883, true, "ssl://broker.hivemq.com:8883"},
		{"::1", 1883, false, "tcp://[::1]:1883"},
	} {
		if got := BrokerURL(tc.host, tc.port, tc.tls); got != tc.want {
			t.Errorf("BrokerURL(%q, %d, %v) = %q, want %q", tc.host, tc.port, tc.tls, got, tc.want)
		}
	}
}

func TestRandomClientID(t *testing.T) {
	a, b := randomClientID(), randomClientID()
	if !strings.HasPrefix(a, "cbportal-") || len(a) != len("cbportal-")+8 {
		t.Fatalf("client id %q has unexpected shape", a)
	}
	if a == b {
		t.Fatal("two random client ids collided")
	}
}

func TestDialValidatesOptions(t *testing.T) {
	ctx := context.Background()
	if _, err := Dial(ctx, Options{Host: "localhost", Port: 1883}); err == nil {
		t.Fatal("Dial without a topic succeeded")
	}
	if _, err := Dial(ctx, Options{Host: "localhost", Port: 1883, Topic: "t", QoS: 3}); err == nil {
		t.Fatal("Dial with QoS 3 succeeded")
	}
}

func TestDialGivesUpAfterAttempts(t *testing.T) {
	// Port 1 on loopback refuses connections immediately.
	_, err := Dial(context.Background(), Options{
		Host:            "127.0.0.1",
		Port:            1,
		Topic:           "t",
		ConnectAttempts: 1,
	})
	if err == nil {
		t.Fatal("Dial to a closed port succeeded")
	}
	if !strings.Contains(err.Error(), "after 1 attempts") {
		t.Fatalf("err = %v, want bounded-retry error", err)
	}
}

type fakeMessage struct {
	payload  []byte
	retained bool
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return m.retained }
func (m fakeMessage) Topic() string     { return "room1" }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestDeliverSkipRetained(t *testing.T) {
	for _, tc := range []struct {
		skip     bool
		retained bool
		want     int
	}{
		{skip: false, retained: false, want: 1},
		{skip: false, retained: true, want: 1},
		{skip: true, retained: false, want: 1},
		{skip: true, retained: true, want: 0},
	} {
		b := &Bus{topic: "room1", skipRetained: tc.skip}
		got := 0
		b.handler = func(p []byte) {
			if string(p) != "msg" {
				t.Fatalf("payload = %q", p)
			}
			got++
		}
		b.deliver(nil, fakeMessage{payload: []byte("msg"), retained: tc.retained})
		if got != tc.want {
			t.Errorf("skip=%v retained=%v: delivered %d, want %d", tc.skip, tc.retained, got, tc.want)
		}
	}
}
