package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/seedbuilders/agency-portal-api/internal/config"
	"github.com/seedbuilders/agency-portal-api/internal/utils"
)

// Server exposes the realtime endpoint over plain net/http. It runs beside
// the Fiber app on its own listener.
type Server struct {
	cfg        *config.Config
	manager    *Manager
	jwtService *utils.JWTService
	upgrader   websocket.Upgrader
}

// NewServer creates the realtime endpoint server.
func NewServer(cfg *config.Config, manager *Manager) *Server {
	return &Server{
		cfg:        cfg,
		manager:    manager,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The portal is served from a different origin than the API.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleWS authenticates the handshake and upgrades the connection.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, role, err := s.jwtService.ExtractClaims(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	client := NewClient(userUUID, role, conn, s.manager)
	client.Start()
}

// Run serves the realtime endpoint until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)

	srv := &http.Server{
		Addr:    s.cfg.WebSocketAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("✅ Realtime endpoint listening on %s", s.cfg.WebSocketAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.manager.Shutdown()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
