package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kiln_dashboard/internal/config"
	"kiln_dashboard/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openPacket = `0{"sid":"eio-1","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`

// fakeBackend is a Socket.IO server on /socket.io/ serving the /web
// namespace. It records every event and heartbeat reply it receives.
type fakeBackend struct {
	t        *testing.T
	srv      *httptest.Server
	received chan Envelope
	joins    chan string
	pongs    chan string
	left     chan struct{}
	conns    atomic.Int32
	reject   atomic.Bool

	mu   sync.Mutex // guards last and serialises writes
	last *websocket.Conn
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{
		t:        t,
		received: make(chan Envelope, 16),
		joins:    make(chan string, 4),
		pongs:    make(chan string, 4),
		left:     make(chan struct{}, 4),
	}
	up := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/socket.io/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
			http.Error(w, "unsupported transport", http.StatusBadRequest)
			return
		}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		fb.serve(conn)
	})
	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBackend) serve(conn *websocket.Conn) {
	if fb.write(conn, openPacket) != nil {
		return
	}
	_, join, err := conn.ReadMessage()
	if err != nil {
		return
	}
	fb.joins <- string(join)
	if fb.reject.Load() {
		_ = fb.write(conn, `44/web,{"message":"not allowed"}`)
		return
	}
	if fb.write(conn, `40/web,{"sid":"ns-1"}`) != nil {
		return
	}
	fb.conns.Add(1)
	fb.mu.Lock()
	fb.last = conn
	fb.mu.Unlock()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}
		p, err := decodePacket(frame)
		if err != nil {
			continue
		}
		switch {
		case p.engine == enginePong:
			fb.pongs <- string(p.body)
		case p.engine == engineMessage && p.sio == sioDisconnect:
			fb.left <- struct{}{}
		case p.engine == engineMessage && p.sio == sioEvent:
			env, err := decodeEvent(p.body)
			if err == nil {
				fb.received <- env
			}
		}
	}
}

func (fb *fakeBackend) write(conn *websocket.Conn, frame string) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

func (fb *fakeBackend) config() config.Realtime {
	return config.Realtime{
		URL:       "ws" + strings.TrimPrefix(fb.srv.URL, "http"),
		Path:      "/socket.io/",
		Namespace: "/web",
	}
}

// raw sends one websocket message to the last joined client.
func (fb *fakeBackend) raw(kind int, frame string) {
	fb.t.Helper()
	fb.mu.Lock()
	defer fb.mu.Unlock()
	require.NotNil(fb.t, fb.last)
	require.NoError(fb.t, fb.last.WriteMessage(kind, []byte(frame)))
}

func (fb *fakeBackend) push(event string, data string) {
	fb.t.Helper()
	frame, err := encodeEvent("/web", Envelope{Event: event, Data: json.RawMessage(data)})
	require.NoError(fb.t, err)
	fb.raw(websocket.TextMessage, string(frame))
}

func (fb *fakeBackend) drop() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.last != nil {
		_ = fb.last.Close()
	}
}

func (fb *fakeBackend) next(t *testing.T) Envelope {
	t.Helper()
	select {
	case env := <-fb.received:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for envelope")
		return Envelope{}
	}
}

type memRecorder struct {
	mu   sync.Mutex
	msgs []models.ChannelMessage
}

func (r *memRecorder) Record(m models.ChannelMessage) {
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
}

func (r *memRecorder) directions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Direction+":"+m.Event)
	}
	return out
}

func TestClient_ConnectJoinsNamespaceThenRequestsInitialData(t *testing.T) {
	fb := newFakeBackend(t)
	c, err := New(fb.config(), nil, nil, nil)
	require.NoError(t, err)
	defer c.Close()

	var hooked atomic.Bool
	c.OnConnect(func() { hooked.Store(true) })

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, "40/web,", <-fb.joins)
	env := fb.next(t)
	assert.Equal(t, models.EventRequestInitialData, env.Event)
	assert.Empty(t, env.Data)
	assert.True(t, hooked.Load())
	assert.True(t, c.Connected())
}

func TestClient_NamespaceRejected(t *testing.T) {
	fb := newFakeBackend(t)
	fb.reject.Store(true)
	c, err := New(fb.config(), nil, nil, nil)
	require.NoError(t, err)
	defer c.Close()

	err = c.Connect(context.Background())
	require.ErrorIs(t, err, errNamespaceRejected)
	assert.Contains(t, err.Error(), "not allowed")
	assert.False(t, c.Connected())
}

func TestClient_UpdatesDeliveredInOrder(t *testing.T) {
	fb := newFakeBackend(t)
	rec := &memRecorder{}
	c, err := New(fb.config(), nil, nil, rec)
	require.NoError(t, err)
	defer c.Close()

	got := make(chan models.StateUpdate, 4)
	c.OnUpdate(func(u models.StateUpdate) { got <- u })
	require.NoError(t, c.Connect(context.Background()))
	fb.next(t)

	fb.push("heartbeat", `{}`)
	fb.push(models.EventUpdate, `{"values":{"temp_forno":101.5}}`)
	fb.push(models.EventUpdate, `{"actuators":{"ventilador":true}}`)

	first := <-got
	second := <-got
	assert.Equal(t, 101.5, first.Values["temp_forno"])
	assert.Nil(t, first.Actuators)
	assert.True(t, second.Actuators["ventilador"])

	assert.Eventually(t, func() bool { return len(rec.directions()) == 4 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{
		"OUT:" + models.EventRequestInitialData,
		"IN:heartbeat",
		"IN:" + models.EventUpdate,
		"IN:" + models.EventUpdate,
	}, rec.directions())
}

func TestClient_UndecodableFramesKeepLinkUp(t *testing.T) {
	fb := newFakeBackend(t)
	c, err := New(fb.config(), nil, nil, nil)
	require.NoError(t, err)
	defer c.Close()

	var lost atomic.Bool
	c.OnDisconnect(func(error) { lost.Store(true) })
	got := make(chan models.StateUpdate, 4)
	c.OnUpdate(func(u models.StateUpdate) { got <- u })
	require.NoError(t, c.Connect(context.Background()))
	fb.next(t)

	fb.raw(websocket.TextMessage, `["update_from_dashboard",{}]`)
	fb.raw(websocket.TextMessage, `42/web,"ping"`)
	fb.raw(websocket.TextMessage, `42/web,{"event":"update_from_dashboard"}`)
	fb.raw(websocket.TextMessage, `42/web,[]`)
	fb.raw(websocket.TextMessage, `4`)
	fb.raw(websocket.TextMessage, `42/web,["update_from_dashboard","not an object"]`)
	fb.raw(websocket.BinaryMessage, "\x00\x01")
	fb.push(models.EventUpdate, `{"values":{"temp_forno":77}}`)

	select {
	case u := <-got:
		assert.Equal(t, 77.0, u.Values["temp_forno"])
	case <-time.After(2 * time.Second):
		t.Fatal("update after bad frames never arrived")
	}
	assert.True(t, c.Connected())
	assert.False(t, lost.Load())
	assert.Empty(t, got)
}

func TestClient_IgnoresOtherNamespaces(t *testing.T) {
	fb := newFakeBackend(t)
	c, err := New(fb.config(), nil, nil, nil)
	require.NoError(t, err)
	defer c.Close()

	got := make(chan models.StateUpdate, 4)
	c.OnUpdate(func(u models.StateUpdate) { got <- u })
	require.NoError(t, c.Connect(context.Background()))
	fb.next(t)

	fb.raw(websocket.TextMessage, `42/dashboard,["update_from_dashboard",{"values":{"temp_forno":1}}]`)
	fb.push(models.EventUpdate, `{"values":{"temp_forno":2}}`)

	u := <-got
	assert.Equal(t, 2.0, u.Values["temp_forno"])
}

func TestClient_AnswersServerHeartbeat(t *testing.T) {
	fb := newFakeBackend(t)
	c, err := New(fb.config(), nil, nil, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	fb.next(t)
	fb.raw(websocket.TextMessage, "2")

	select {
	case body := <-fb.pongs:
		assert.Empty(t, body)
	case <-time.After(2 * time.Second):
		t.Fatal("no pong")
	}
	assert.True(t, c.Connected())
}

func TestClient_EmitControlEvent(t *testing.T) {
	fb := newFakeBackend(t)
	c, err := New(fb.config(), nil, nil, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	fb.next(t)

	require.NoError(t, c.Emit(models.EventControl, models.ControlEvent{
		Command: models.CommandManualControl,
		Payload: models.ManualPayload{Target: models.ActuatorFan, State: true},
	}))
	env := fb.next(t)
	assert.Equal(t, models.EventControl, env.Event)
	assert.JSONEq(t, `{"command":"MANUAL_CONTROL","payload":{"target":"ventilador","state":true}}`, string(env.Data))
}

func TestClient_EmitBeforeConnect(t *testing.T) {
	c, err := New(config.Realtime{URL: "ws://127.0.0.1:1", Namespace: "/web"}, nil, nil, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Emit(models.EventRequestInitialData, nil), ErrNotConnected)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestClient_CloseLeavesNamespace(t *testing.T) {
	fb := newFakeBackend(t)
	c, err := New(fb.config(), nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, c.Connect(context.Background()))
	fb.next(t)
	require.NoError(t, c.Close())

	select {
	case <-fb.left:
	case <-time.After(2 * time.Second):
		t.Fatal("namespace disconnect not sent")
	}
}

func TestClient_ServerLeavingNamespaceDropsLink(t *testing.T) {
	fb := newFakeBackend(t)
	c, err := New(fb.config(), nil, nil, nil)
	require.NoError(t, err)
	defer c.Close()

	lost := make(chan error, 1)
	c.OnDisconnect(func(err error) { lost <- err })
	require.NoError(t, c.Connect(context.Background()))
	fb.next(t)
	fb.raw(websocket.TextMessage, "41/web,")

	select {
	case err := <-lost:
		assert.ErrorIs(t, err, errServerDisconnected)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect hook not run")
	}
	assert.False(t, c.Connected())
}

func TestClient_DropWithoutReconnectStaysDown(t *testing.T) {
	fb := newFakeBackend(t)
	c, err := New(fb.config(), nil, nil, nil)
	require.NoError(t, err)
	defer c.Close()

	var lost atomic.Bool
	c.OnDisconnect(func(error) { lost.Store(true) })
	require.NoError(t, c.Connect(context.Background()))
	fb.next(t)
	fb.drop()

	assert.Eventually(t, func() bool { return !c.Connected() }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, lost.Load, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), fb.conns.Load())
	assert.ErrorIs(t, c.Emit(models.EventRequestInitialData, nil), ErrNotConnected)
}

func TestClient_ReconnectRequestsSnapshotAgain(t *testing.T) {
	fb := newFakeBackend(t)
	cfg := fb.config()
	cfg.Reconnect = config.Reconnect{Enabled: true, MaxRetries: 3, MaxElapsed: 5 * time.Second}
	c, err := New(cfg, nil, nil, nil)
	require.NoError(t, err)
	defer c.Close()

	var hooks atomic.Int32
	c.OnConnect(func() { hooks.Add(1) })

	require.NoError(t, c.Connect(context.Background()))
	fb.next(t)
	fb.drop()

	env := fb.next(t)
	assert.Equal(t, models.EventRequestInitialData, env.Event)
	assert.Equal(t, int32(2), fb.conns.Load())
	assert.Eventually(t, func() bool { return hooks.Load() == 2 }, time.Second, 10*time.Millisecond)
}

func TestNew_BuildsTransportURL(t *testing.T) {
	c, err := New(config.Realtime{URL: "http://backend:8080", Path: "/socket.io/", Namespace: "web"}, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ws://backend:8080/socket.io/?EIO=4&transport=websocket", c.endpoint)
	assert.Equal(t, "/web", c.namespace)
}
