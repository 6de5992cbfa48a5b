package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Engine.IO v4 packet types (first byte of every text frame).
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
)

// Socket.IO v5 packet types (byte following an engine message).
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioConnectError = '4'
)

const engineProtocol = "4"

var (
	errBadPacket          = errors.New("malformed socket.io packet")
	errNamespaceRejected  = errors.New("namespace connect rejected")
	errServerDisconnected = errors.New("server closed the namespace")
)

// handshake is the payload of the engine open packet. Intervals are in ms.
type handshake struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// readWindow is how long the link may stay silent before it counts as dead:
// one ping interval plus the grace the server allows for the pong.
func (h handshake) readWindow() time.Duration {
	if h.PingInterval <= 0 {
		return pongWait
	}
	return time.Duration(h.PingInterval+h.PingTimeout) * time.Millisecond
}

// packet is one decoded text frame.
type packet struct {
	engine    byte
	sio       byte
	namespace string
	body      []byte
}

// endpointURL builds the websocket transport URL of a Socket.IO server.
func endpointURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if path = strings.Trim(path, "/"); path == "" {
		path = "socket.io"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + path + "/"
	q := u.Query()
	q.Set("EIO", engineProtocol)
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func normalizeNamespace(ns string) string {
	ns = strings.TrimSpace(ns)
	if ns == "" || ns == "/" {
		return "/"
	}
	if !strings.HasPrefix(ns, "/") {
		ns = "/" + ns
	}
	return strings.TrimRight(ns, "/")
}

// decodePacket splits a text frame into its engine and socket packet parts.
func decodePacket(frame []byte) (packet, error) {
	if len(frame) == 0 {
		return packet{}, errBadPacket
	}
	p := packet{engine: frame[0], namespace: "/"}
	rest := frame[1:]
	if p.engine != engineMessage {
		p.body = rest
		return p, nil
	}
	if len(rest) == 0 {
		return packet{}, errBadPacket
	}
	p.sio = rest[0]
	rest = rest[1:]
	if len(rest) > 0 && rest[0] == '/' {
		i := bytes.IndexByte(rest, ',')
		if i < 0 {
			p.namespace = string(rest)
			return p, nil
		}
		p.namespace = string(rest[:i])
		rest = rest[i+1:]
	}
	p.body = rest
	return p, nil
}

// decodeEvent reads an event body `[ackID]["name", data?]`.
func decodeEvent(body []byte) (Envelope, error) {
	body = bytes.TrimLeft(body, "0123456789")
	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", errBadPacket, err)
	}
	if len(parts) == 0 {
		return Envelope{}, errBadPacket
	}
	var env Envelope
	if err := json.Unmarshal(parts[0], &env.Event); err != nil {
		return Envelope{}, fmt.Errorf("%w: event name: %v", errBadPacket, err)
	}
	if len(parts) > 1 {
		env.Data = parts[1]
	}
	return env, nil
}

// encodeEvent frames env as a Socket.IO event on namespace ns.
func encodeEvent(ns string, env Envelope) ([]byte, error) {
	name, err := json.Marshal(env.Event)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.WriteByte(engineMessage)
	b.WriteByte(sioEvent)
	writeNamespace(&b, ns)
	b.WriteByte('[')
	b.Write(name)
	if len(env.Data) > 0 {
		b.WriteByte(',')
		b.Write(env.Data)
	}
	b.WriteByte(']')
	return b.Bytes(), nil
}

// encodeControl frames a namespace connect or disconnect.
func encodeControl(ns string, sio byte) []byte {
	var b bytes.Buffer
	b.WriteByte(engineMessage)
	b.WriteByte(sio)
	writeNamespace(&b, ns)
	return b.Bytes()
}

func writeNamespace(b *bytes.Buffer, ns string) {
	if ns == "/" {
		return
	}
	b.WriteString(ns)
	b.WriteByte(',')
}

// connectError extracts the server message of a connect_error packet.
func connectError(body []byte) error {
	var m struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &m) == nil && m.Message != "" {
		return fmt.Errorf("%w: %s", errNamespaceRejected, m.Message)
	}
	return errNamespaceRejected
}
