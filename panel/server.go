package panel

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const wsPingPeriod = 10 * time.Second

// Server upgrades webview connections to websockets and feeds inbound
// messages to a per-connection dispatcher.
type Server struct {
	NewDispatcher func(poster Poster) *Dispatcher
	Logger        *logrus.Logger
}

func (server *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(_ *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		server.Logger.Errorf("Error upgrading websocket: %v", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			server.Logger.Debugf("Error closing websocket: %v", err)
		}
	}()

	server.Logger.Info("Panel connected")
	defer server.Logger.Info("Panel disconnected")

	poster := &connPoster{conn: conn}
	dispatcher := server.NewDispatcher(poster)

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := poster.ping(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if closeErr, ok := err.(*websocket.CloseError); ok && closeErr.Code == websocket.CloseNormalClosure {
				break
			}
			server.Logger.Warnf("Panel read error: %v", err)
			break
		}
		// Lookups run off the read loop so a new lookupCidr can cancel an
		// in-flight batch.
		go dispatcher.Handle(r.Context(), data)
	}
}

// connPoster serializes writes to one websocket connection.
type connPoster struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (poster *connPoster) Post(message any) error {
	poster.mu.Lock()
	defer poster.mu.Unlock()
	return poster.conn.WriteJSON(message)
}

func (poster *connPoster) ping() error {
	poster.mu.Lock()
	defer poster.mu.Unlock()
	return poster.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
}
