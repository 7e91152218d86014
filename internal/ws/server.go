package ws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server exposes the hub on its own listener, separate from the REST API
// port. Makers connect to ws://host:port/.
type Server struct {
	httpSrv  *http.Server
	hub      *Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer wraps the hub in a websocket HTTP server on the given port.
func NewServer(port int, hub *Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			// Makers are headless bots, not browsers; origin checks add nothing.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)
	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return s
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws.upgrade_failed", zap.Error(err))
		return
	}
	go s.hub.ServeConn(sock)
}

// Listen blocks serving maker connections until Shutdown.
func (s *Server) Listen() error {
	s.logger.Info("ws.listening", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and closes every live channel.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()
	return s.httpSrv.Shutdown(ctx)
}
