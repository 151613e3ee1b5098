package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squidsoft/flightmarkers/pkg/core"
	"github.com/squidsoft/flightmarkers/pkg/streaming"
)

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]streaming.Envelope(nil), m.messages...)
}

func (m *messageLog) count(msgType string) int {
	n := 0
	for _, env := range m.all() {
		if env.Type == msgType {
			n++
		}
	}
	return n
}

// testServer upgrades to WebSocket, records received messages and acks
// session boundaries. With dropFirst set the first connection is closed
// right after its start_session ack.
func testServer(t *testing.T, dropFirst bool) (*httptest.Server, *messageLog, *atomic.Int32) {
	t.Helper()
	ml := &messageLog{}
	var conns atomic.Int32

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()
		n := conns.Add(1)

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if env.Type == streaming.TypeStartSession || env.Type == streaming.TypeEndSession {
				data, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
				if dropFirst && n == 1 && env.Type == streaming.TypeStartSession {
					return
				}
			}
		}
	}))

	return srv, ml, &conns
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testSession() *core.Session {
	return &core.Session{ID: "9c1f4e2a-0b7d-4e55-8a3b-1f2e3d4c5b6a", Name: "Duna entry", StartTime: time.Now().UTC()}
}

func TestStartAndEndSession(t *testing.T) {
	srv, ml, _ := testServer(t, false)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "test"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.EndSession())

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartSession, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndSession, msgs[len(msgs)-1].Type)

	var p streaming.StartSessionPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &p))
	assert.Equal(t, "Duna entry", p.Name)
}

func TestRecordFrame(t *testing.T) {
	srv, ml, _ := testServer(t, false)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(testSession()))
	drag := core.Arrow{Category: core.CategoryDrag, Direction: r3.Vector{X: -1}, Magnitude: 33}
	require.NoError(t, b.RecordFrame(&core.Frame{VesselID: "lander", FrameNumber: 12, Arrows: []core.Arrow{drag}}))
	require.NoError(t, b.EndSession())

	assert.Eventually(t, func() bool { return ml.count(streaming.TypeVesselFrame) == 1 }, time.Second, 10*time.Millisecond)

	for _, env := range ml.all() {
		if env.Type != streaming.TypeVesselFrame {
			continue
		}
		var f core.Frame
		require.NoError(t, json.Unmarshal(env.Payload, &f))
		assert.Equal(t, "lander", f.VesselID)
		assert.Equal(t, []core.Arrow{drag}, f.Arrows)
	}
	assert.Zero(t, b.Dropped())
}

func TestReconnectReplaysStartSession(t *testing.T) {
	srv, ml, conns := testServer(t, true)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	b.conn.backoff = 10 * time.Millisecond
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(testSession()))

	assert.Eventually(t, func() bool {
		return conns.Load() == 2 && ml.count(streaming.TypeStartSession) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInit_BadURL(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/nothing"}, nil)
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestSendAndWait_Timeout(t *testing.T) {
	c := newConnection(discardLogger())
	err := c.sendAndWait([]byte("{}"), streaming.TypeEndSession, 20*time.Millisecond)
	assert.ErrorContains(t, err, "timeout waiting for ack")
}

func TestSend_DropsWhenFull(t *testing.T) {
	c := newConnection(discardLogger())
	for i := 0; i < sendChSize+3; i++ {
		c.send([]byte("x"))
	}
	assert.Equal(t, uint64(3), c.dropped.Load())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
