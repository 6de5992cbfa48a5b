// Package realtime is the persistent duplex channel to the backend.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"kiln_dashboard/internal/config"
	"kiln_dashboard/internal/logger"
	"kiln_dashboard/internal/metrics"
	"kiln_dashboard/internal/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Link timing and size limits.
const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second // read window until the server announces its heartbeat
	maxMsgSize    = 1 << 16          // 64 KB, a full snapshot fits comfortably
	handshakeWait = 10 * time.Second
)

// ErrNotConnected is returned by Emit when there is no live link.
var ErrNotConnected = errors.New("realtime channel not connected")

// Envelope is one decoded channel event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// MessageRecorder receives every envelope for diagnostics. Implementations
// must not block.
type MessageRecorder interface {
	Record(msg models.ChannelMessage)
}

// Client keeps one Socket.IO link to a backend namespace, carried over a
// websocket transport.
type Client struct {
	endpoint  string
	namespace string
	reconnect config.Reconnect
	dialer    *websocket.Dialer
	log       *logger.Logger
	metrics   *metrics.Metrics
	recorder  MessageRecorder

	onUpdate     func(models.StateUpdate)
	onConnect    []func()
	onDisconnect []func(error)

	mu   sync.Mutex // guards conn and serialises writes
	conn *websocket.Conn

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New prepares a client for cfg. Nothing is dialed until Connect.
func New(cfg config.Realtime, log *logger.Logger, m *metrics.Metrics, rec MessageRecorder) (*Client, error) {
	endpoint, err := endpointURL(cfg.URL, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("realtime url: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		endpoint:  endpoint,
		namespace: normalizeNamespace(cfg.Namespace),
		reconnect: cfg.Reconnect,
		dialer:    &websocket.Dialer{HandshakeTimeout: handshakeWait},
		log:       logger.OrNop(log),
		metrics:   m,
		recorder:  rec,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// OnUpdate sets the push-update handler. Updates are delivered one at a time
// in the order the channel delivered them. Must be set before Connect.
func (c *Client) OnUpdate(h func(models.StateUpdate)) { c.onUpdate = h }

// OnConnect adds a hook run after every successful (re)connect, after the
// initial-snapshot request is sent. Must be set before Connect.
func (c *Client) OnConnect(h func()) { c.onConnect = append(c.onConnect, h) }

// OnDisconnect adds a hook run when an established link drops. It is not
// run for Close. Must be set before Connect.
func (c *Client) OnDisconnect(h func(error)) { c.onDisconnect = append(c.onDisconnect, h) }

// Connect dials the backend, joins the namespace and starts the reader.
func (c *Client) Connect(ctx context.Context) error {
	conn, window, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.wg.Add(1)
	go c.readLoop(conn, window)
	c.connected()
	return nil
}

// dial opens the transport and completes the engine and namespace
// handshakes. It returns the silence window the server's heartbeat allows.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, time.Duration, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		c.log.Warnw("ws_dial_failed", "url", c.endpoint, "err", err)
		return nil, 0, fmt.Errorf("dial %s: %w", c.endpoint, err)
	}
	conn.SetReadLimit(maxMsgSize)

	hs, err := c.handshake(conn)
	if err != nil {
		_ = conn.Close()
		c.log.Warnw("ws_handshake_failed", "url", c.endpoint, "namespace", c.namespace, "err", err)
		return nil, 0, fmt.Errorf("join %s: %w", c.namespace, err)
	}
	window := hs.readWindow()
	_ = conn.SetReadDeadline(time.Now().Add(window))

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.log.Infow("ws_connected", "url", c.endpoint, "namespace", c.namespace, "sid", hs.SID)
	return conn, window, nil
}

// handshake reads the engine open packet, requests the namespace and waits
// for the server to accept it. conn is not shared yet, so writes go direct.
func (c *Client) handshake(conn *websocket.Conn) (handshake, error) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeWait))
	p, err := readPacket(conn)
	if err != nil {
		return handshake{}, err
	}
	if p.engine != engineOpen {
		return handshake{}, fmt.Errorf("%w: expected open, got %q", errBadPacket, p.engine)
	}
	var hs handshake
	if err := json.Unmarshal(p.body, &hs); err != nil {
		return handshake{}, fmt.Errorf("%w: open: %v", errBadPacket, err)
	}

	if err := writeDirect(conn, encodeControl(c.namespace, sioConnect)); err != nil {
		return handshake{}, err
	}
	for {
		p, err := readPacket(conn)
		if err != nil {
			return handshake{}, err
		}
		switch {
		case p.engine == enginePing:
			if err := writeDirect(conn, append([]byte{enginePong}, p.body...)); err != nil {
				return handshake{}, err
			}
		case p.engine == engineClose:
			return handshake{}, errServerDisconnected
		case p.engine == engineMessage && p.namespace == c.namespace && p.sio == sioConnect:
			return hs, nil
		case p.engine == engineMessage && p.namespace == c.namespace && p.sio == sioConnectError:
			return handshake{}, connectError(p.body)
		}
	}
}

func readPacket(conn *websocket.Conn) (packet, error) {
	for {
		kind, frame, err := conn.ReadMessage()
		if err != nil {
			return packet{}, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		return decodePacket(frame)
	}
}

func writeDirect(conn *websocket.Conn, frame []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// connected requests the initial snapshot and runs the connect hooks.
func (c *Client) connected() {
	if err := c.Emit(models.EventRequestInitialData, nil); err != nil {
		c.log.Warnw("ws_initial_request_failed", "err", err)
	}
	for _, h := range c.onConnect {
		h()
	}
}

// Connected reports whether a link is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Emit sends one event. data may be nil for events without payload.
func (c *Client) Emit(event string, data any) error {
	env := Envelope{Event: event}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode %s: %w", event, err)
		}
		env.Data = b
	}
	frame, err := encodeEvent(c.namespace, env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}

	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	err = writeDirect(c.conn, frame)
	c.mu.Unlock()
	if err != nil {
		c.log.Infow("ws_write_failed", "event", event, "err", err)
		return fmt.Errorf("write %s: %w", event, err)
	}

	c.log.Debugw("ws_sent", "event", event, "data", string(env.Data))
	c.record(models.DirectionOutbound, env)
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn, window time.Duration) {
	defer c.wg.Done()
	for {
		if err := c.drain(conn, window); err != nil {
			c.dropped(conn)
			if c.ctx.Err() != nil {
				return
			}
			c.log.Infow("ws_read_closed", "err", err)
			for _, h := range c.onDisconnect {
				h(err)
			}
			next, nextWindow, rerr := c.redial()
			if rerr != nil {
				return
			}
			conn, window = next, nextWindow
			c.connected()
		}
	}
}

// drain reads frames until the link fails or the server leaves the
// namespace. Frames that do not decode are logged and skipped.
func (c *Client) drain(conn *websocket.Conn, window time.Duration) error {
	for {
		kind, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(window))
		if kind != websocket.TextMessage {
			c.log.Debugw("ws_binary_ignored", "size", len(frame))
			continue
		}
		p, err := decodePacket(frame)
		if err != nil {
			c.log.Warnw("ws_bad_frame", "err", err)
			continue
		}

		switch p.engine {
		case enginePing:
			c.pong(conn, p.body)
		case engineClose:
			return errServerDisconnected
		case engineMessage:
			if p.namespace != c.namespace {
				c.log.Debugw("ws_foreign_namespace", "namespace", p.namespace)
				continue
			}
			switch p.sio {
			case sioEvent:
				env, err := decodeEvent(p.body)
				if err != nil {
					c.log.Warnw("ws_bad_frame", "err", err)
					continue
				}
				c.record(models.DirectionInbound, env)
				c.dispatch(env)
			case sioDisconnect:
				return errServerDisconnected
			}
		default:
			c.log.Debugw("ws_packet_ignored", "type", string(p.engine))
		}
	}
}

// pong answers a server heartbeat.
func (c *Client) pong(conn *websocket.Conn, body []byte) {
	c.mu.Lock()
	err := writeDirect(conn, append([]byte{enginePong}, body...))
	c.mu.Unlock()
	if err != nil {
		c.log.Infow("ws_pong_failed", "err", err)
	}
}

func (c *Client) dispatch(env Envelope) {
	if env.Event != models.EventUpdate {
		c.log.Debugw("ws_event_ignored", "event", env.Event)
		return
	}
	var u models.StateUpdate
	if err := json.Unmarshal(env.Data, &u); err != nil {
		c.log.Warnw("ws_bad_update", "err", err)
		return
	}
	c.metrics.Push()
	if c.onUpdate != nil {
		c.onUpdate(u)
	}
}

func (c *Client) dropped(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
}

// redial applies the configured reconnect policy. With reconnect disabled the
// link stays down until the view is re-entered.
func (c *Client) redial() (*websocket.Conn, time.Duration, error) {
	if !c.reconnect.Enabled {
		return nil, 0, ErrNotConnected
	}
	expo := backoff.NewExponentialBackOff()
	if c.reconnect.MaxElapsed > 0 {
		expo.MaxElapsedTime = c.reconnect.MaxElapsed
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, c.reconnect.MaxRetries), c.ctx)

	var (
		conn   *websocket.Conn
		window time.Duration
	)
	err := backoff.Retry(func() error {
		var err error
		conn, window, err = c.dial(c.ctx)
		return err
	}, policy)
	if err != nil {
		c.log.Warnw("ws_reconnect_gave_up", "err", err)
		return nil, 0, err
	}
	return conn, window, nil
}

func (c *Client) record(direction string, env Envelope) {
	if c.recorder == nil {
		return
	}
	var payload any
	if len(env.Data) > 0 {
		payload = env.Data
	}
	c.recorder.Record(models.ChannelMessage{
		MessageID:  uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Direction:  direction,
		Event:      env.Event,
		Payload:    payload,
	})
}

// Close tears the link down and waits for the background goroutines.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		if c.conn != nil {
			_ = writeDirect(c.conn, encodeControl(c.namespace, sioDisconnect))
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			err = c.conn.Close()
		}
		c.mu.Unlock()
		c.wg.Wait()
	})
	return err
}
