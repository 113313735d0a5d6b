package livereload

import (
	"net/http"
	"strconv"
	"time"

	"bundlekit"
	"bundlekit/internal/logging"

	"github.com/gorilla/websocket"
)

const (
	wsReadBufferSize  = 1024
	wsWriteBufferSize = 1024
	wsWriteTimeout    = 10 * time.Second
)

const clientScriptPath = "client/livereload.js"

// Handler upgrades requests to websockets and streams hub messages. The
// first message is always a hello carrying the current build id.
func Handler(hub *Hub, logger *logging.Logger) http.Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.Named("livereload")
	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsReadBufferSize,
		WriteBufferSize: wsWriteBufferSize,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", map[string]string{
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
				"error":       err.Error(),
			})
			return
		}
		defer conn.Close()

		messages, cancel := hub.Subscribe()
		defer cancel()

		if err := writeMessage(conn, Message{Type: TypeHello, BuildID: hub.BuildID()}); err != nil {
			return
		}
		logger.Debug("client connected", map[string]string{
			"remote_addr": r.RemoteAddr,
			"clients":     strconv.Itoa(hub.Subscribers()),
		})

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case message, ok := <-messages:
				if !ok {
					deadline := time.Now().Add(wsWriteTimeout)
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
					return
				}
				if err := writeMessage(conn, message); err != nil {
					return
				}
			case <-closed:
				logger.Debug("client disconnected", map[string]string{
					"remote_addr": r.RemoteAddr,
				})
				return
			}
		}
	})
}

func writeMessage(conn *websocket.Conn, message Message) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(message)
}

// ScriptHandler serves the embedded browser client.
func ScriptHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := bundlekit.ClientFS.ReadFile(clientScriptPath)
		if err != nil {
			http.Error(w, "live reload client unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(data)
	})
}
