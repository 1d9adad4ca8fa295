package devserver

import (
	"bytes"
	"io"
	"sync"

	"golang.org/x/net/websocket"
)

const (
	// ReloadPath is the websocket endpoint browsers listen on for reloads.
	ReloadPath = "/__kiln/reload"
	// ClientPath serves the reload client script.
	ClientPath = "/__kiln/client.js"

	reloadMessage = "reload"
)

// clientScript reconnects after the server restarts and reloads the page
// on every message.
const clientScript = `(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var url = proto + location.host + "` + ReloadPath + `";
  function connect(retry) {
    var ws = new WebSocket(url);
    ws.onopen = function () { if (retry) { location.reload(); } };
    ws.onmessage = function () { location.reload(); };
    ws.onclose = function () { setTimeout(function () { connect(true); }, 1000); };
  }
  connect(false);
})();
`

var (
	scriptTag = []byte(`<script src="` + ClientPath + `"></script>`)
	bodyClose = []byte("</body>")
)

// Inject places the reload script tag before the last </body>, or at the end
// of documents without one.
func Inject(doc []byte) []byte {
	i := bytes.LastIndex(bytes.ToLower(doc), bodyClose)
	if i < 0 {
		return append(doc[:len(doc):len(doc)], scriptTag...)
	}
	out := make([]byte, 0, len(doc)+len(scriptTag))
	out = append(out, doc[:i]...)
	out = append(out, scriptTag...)
	return append(out, doc[i:]...)
}

// Hub tracks connected reload clients.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

// Handler accepts reload clients. A client stays registered until it
// disconnects.
func (h *Hub) Handler() websocket.Handler {
	return func(ws *websocket.Conn) {
		h.mu.Lock()
		h.conns[ws] = struct{}{}
		h.mu.Unlock()

		defer func() {
			h.mu.Lock()
			delete(h.conns, ws)
			h.mu.Unlock()
			_ = ws.Close()
		}()

		_, _ = io.Copy(io.Discard, ws)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast tells every connected client to reload. Clients that cannot be
// written to are dropped.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ws := range h.conns {
		if err := websocket.Message.Send(ws, reloadMessage); err != nil {
			delete(h.conns, ws)
			_ = ws.Close()
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ws := range h.conns {
		delete(h.conns, ws)
		_ = ws.Close()
	}
}
