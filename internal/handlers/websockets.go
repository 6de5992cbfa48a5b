package handlers

import (
	"errors"
	"net/http"
	"time"

	"kiln_dashboard/internal/surface"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB
)

// Envelope types pushed to the shell.
const (
	wsSnapshot = "snapshot"
	wsClosed   = "closed"
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var errViewLeft = errors.New("view left")

// Upgrader for HTTP -> WebSocket. The shell is served from the same origin.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary      Widget-tree stream
// @Description  Pushes the snapshot of the screen on connect and after every change. Follows re-entered instances of the screen.
// @Tags         views
// @Param        view  query  string  true  "Screen"
// @Success      101
// @Failure      409  {object}  map[string]string
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	name := c.Query("view")
	page, ok := h.pageOf(name)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "view not entered: " + name})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reader goroutine to handle control frames and detect disconnects.
	done := make(chan struct{})
	go h.startReader(conn, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		err := h.streamPage(c, conn, page, done, ping.C)
		if !errors.Is(err, errViewLeft) {
			if err != nil && h.log != nil {
				h.log.Infow("ws_write_failed", "view", name, "err", err)
			}
			return
		}
		// The instance closed: follow a re-entered one or tell the shell.
		next, ok := h.pageOf(name)
		if !ok || next == page {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteJSON(wsEnvelope{Type: wsClosed, Data: gin.H{"view": name}})
			return
		}
		page = next
	}
}

func (h *Handler) pageOf(name string) (*surface.Page, bool) {
	v, ok := h.services.Get(name)
	if !ok {
		return nil, false
	}
	return v.Page(), true
}

// streamPage writes the snapshot of page now and after each change. It
// returns errViewLeft when the page closes, nil when the peer goes away.
func (h *Handler) streamPage(c *gin.Context, conn *websocket.Conn, page *surface.Page, done <-chan struct{}, ping <-chan time.Time) error {
	changes, cancel := page.Subscribe()
	defer cancel()

	if err := h.sendSnapshot(conn, page); err != nil {
		return err
	}
	for {
		select {
		case <-done:
			return nil
		case <-c.Request.Context().Done():
			return nil
		case <-ping:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		case _, open := <-changes:
			if !open || page.Closed() {
				return errViewLeft
			}
			if err := h.sendSnapshot(conn, page); err != nil {
				return err
			}
		}
	}
}

// Helper: startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

func (h *Handler) sendSnapshot(conn *websocket.Conn, page *surface.Page) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: wsSnapshot, Data: page.Snapshot()})
}
