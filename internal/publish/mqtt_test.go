package publish

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	pms7003 "github.com/luhtfiimanal/go-pms7003"
	"github.com/luhtfiimanal/go-pms7003/internal/config"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient records publishes. Methods not overridden panic via the nil
// embedded interface.
type fakeClient struct {
	paho.Client

	mu           sync.Mutex
	messages     []message
	failTopic    string
	connected    bool
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if topic == c.failTopic {
		return &fakeToken{err: errors.New("broker unavailable")}
	}
	var b []byte
	switch v := payload.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	}
	c.messages = append(c.messages, message{topic, qos, retained, b})
	return &fakeToken{}
}

func (c *fakeClient) Connect() paho.Token {
	c.connected = true
	return &fakeToken{}
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func testMeasurement(pm25 uint16) pms7003.Measurement {
	var v [pms7003.NumValues]uint16
	v[4] = pm25
	return pms7003.NewMeasurement(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), v)
}

func TestPublisher_PublishAll(t *testing.T) {
	client := &fakeClient{}
	p := NewWithClient(client, "home/air", 1, slog.New(slog.DiscardHandler))

	sent, err := p.PublishAll([]pms7003.Measurement{testMeasurement(10), testMeasurement(20)})
	require.NoError(t, err)
	require.Equal(t, 2, sent)
	require.Len(t, client.messages, 2)

	for i, want := range []uint16{10, 20} {
		msg := client.messages[i]
		require.Equal(t, "home/air/measurement", msg.topic)
		require.Equal(t, byte(1), msg.qos)
		require.False(t, msg.retained)

		var payload Payload
		require.NoError(t, json.Unmarshal(msg.payload, &payload))
		require.Equal(t, want, payload.PM2_5Atm)
		require.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), payload.Timestamp)
	}
}

func TestPublisher_PayloadFieldNames(t *testing.T) {
	b, err := json.Marshal(NewPayload(testMeasurement(7)))
	require.NoError(t, err)
	require.Contains(t, string(b), `"pm2_5_atm":7`)
	require.Contains(t, string(b), `"n0_3":0`)
}

func TestPublisher_PublishError(t *testing.T) {
	client := &fakeClient{failTopic: "pms7003/measurement"}
	p := NewWithClient(client, "pms7003", 0, slog.New(slog.DiscardHandler))

	sent, err := p.PublishAll([]pms7003.Measurement{testMeasurement(1), testMeasurement(2)})
	require.Error(t, err)
	require.Zero(t, sent)
}

func TestPublisher_ConnectAndClose(t *testing.T) {
	client := &fakeClient{}
	p := NewWithClient(client, "pms7003", 0, slog.New(slog.DiscardHandler))

	require.NoError(t, p.Connect(t.Context()))
	p.Close()
	require.True(t, client.disconnected)
	require.Equal(t, []message{{"pms7003/status", 1, true, []byte("offline")}}, client.messages)
}

func TestNew_Topics(t *testing.T) {
	p := New(config.MQTTConfig{Broker: "localhost", Port: 1883, ClientID: "test", TopicPrefix: "air", KeepAlive: 30},
		slog.New(slog.DiscardHandler))
	require.Equal(t, "air/measurement", p.MeasurementTopic())
	require.Equal(t, "air/status", p.StatusTopic())
	require.False(t, p.client.IsConnected())
}

func TestPublisher_CloseWithoutConnection(t *testing.T) {
	client := &fakeClient{}
	p := NewWithClient(client, "pms7003", 0, slog.New(slog.DiscardHandler))

	p.Close()
	require.True(t, client.disconnected)
	require.Empty(t, client.messages)
}
