package devserver

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/iDestin/rsbuild/internal/compiler"
)

// ReloadMessageType represents the type of live-update message.
type ReloadMessageType string

const (
	// ReloadTypeInvalid marks the current output stale (build in progress).
	ReloadTypeInvalid ReloadMessageType = "invalid"

	// ReloadTypeDone reports a finished build.
	ReloadTypeDone ReloadMessageType = "done"

	// ReloadTypeReload asks browsers for a full page reload.
	ReloadTypeReload ReloadMessageType = "reload"
)

// ReloadMessage is sent to browsers over the live-update channel.
type ReloadMessage struct {
	Type   ReloadMessageType `json:"type"`
	Errors []string          `json:"errors,omitempty"`
}

// ReloadServer manages WebSocket connections for the live-update channel.
// It can be told the output became invalid or a build finished, and reports
// build completion to every connected browser.
type ReloadServer struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	metrics  *Metrics
}

// NewReloadServer creates a new live-update server.
func NewReloadServer(metrics *Metrics) *ReloadServer {
	return &ReloadServer{
		clients: make(map[*websocket.Conn]bool),
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in dev
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection.
func (r *ReloadServer) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	r.mu.Lock()
	r.clients[conn] = true
	r.mu.Unlock()
	r.reportClients()

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	r.mu.Lock()
	delete(r.clients, conn)
	r.mu.Unlock()
	conn.Close()
	r.reportClients()
}

// BecomeInvalid tells browsers the current output is stale.
func (r *ReloadServer) BecomeInvalid() {
	r.broadcast(ReloadMessage{Type: ReloadTypeInvalid})
}

// Done reports build completion, carrying any compiler diagnostics.
func (r *ReloadServer) Done(stats compiler.Stats) {
	r.broadcast(ReloadMessage{Type: ReloadTypeDone, Errors: stats.Errors})
}

// NotifyReload asks all browsers for a full page reload.
func (r *ReloadServer) NotifyReload() {
	r.broadcast(ReloadMessage{Type: ReloadTypeReload})
}

// broadcast sends a message to all connected clients.
func (r *ReloadServer) broadcast(msg ReloadMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	r.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(r.clients))
	for client := range r.clients {
		clients = append(clients, client)
	}
	r.mu.RUnlock()

	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			r.mu.Lock()
			delete(r.clients, client)
			r.mu.Unlock()
			client.Close()
		}
	}
	r.reportClients()
}

// ClientCount returns the number of connected clients.
func (r *ReloadServer) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Close closes all client connections.
func (r *ReloadServer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for client := range r.clients {
		client.Close()
		delete(r.clients, client)
	}
}

func (r *ReloadServer) reportClients() {
	if r.metrics != nil {
		r.metrics.SetReloadClients(r.ClientCount())
	}
}

// ReloadClientScript is the JavaScript injected into served HTML pages to
// connect browsers to the live-update channel.
const ReloadClientScript = `
<script>
(function() {
    'use strict';

    var reconnectDelay = 1000;
    var maxReconnectDelay = 30000;
    var ws = null;

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        ws = new WebSocket(protocol + '//' + location.host + '/rsbuild-hmr');

        ws.onopen = function() {
            console.log('[rsbuild] live-update connected');
            reconnectDelay = 1000;
        };

        ws.onmessage = function(e) {
            var msg;
            try {
                msg = JSON.parse(e.data);
            } catch (err) {
                return;
            }

            switch (msg.type) {
                case 'invalid':
                    console.log('[rsbuild] rebuilding...');
                    break;

                case 'done':
                    if (msg.errors && msg.errors.length) {
                        console.error('[rsbuild] build failed:', msg.errors.join('\n'));
                        break;
                    }
                    console.log('[rsbuild] build finished, reloading...');
                    location.reload();
                    break;

                case 'reload':
                    location.reload();
                    break;
            }
        };

        ws.onclose = function() {
            setTimeout(function() {
                reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
                connect();
            }, reconnectDelay);
        };

        ws.onerror = function() {
            ws.close();
        };
    }

    if (document.readyState === 'loading') {
        document.addEventListener('DOMContentLoaded', connect);
    } else {
        connect();
    }
})();
</script>
`
