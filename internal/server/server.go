package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"trade-dashboard-go/internal/auth"
	"trade-dashboard-go/internal/ws"
)

// Server is the HTTP front of the dashboard: the JSON API, the
// websocket endpoint and the static dashboard assets.
type Server struct {
	log  *zap.Logger
	http *http.Server
}

// NewRouter wires the routes. Event-ingestion endpoints are unguarded
// on purpose: they are called by the trusted automated signal source,
// which has no session. Read and delete go through the session check.
func NewRouter(api *APIHandler, sessions *auth.Sessions, hub *ws.Hub) *http.ServeMux {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/trades", sessions.Require(api.TradesHandler))
	mux.HandleFunc("/api/signal_detected", api.SignalDetectedHandler)
	mux.HandleFunc("/api/setup_confirmed", api.SetupConfirmedHandler)
	mux.HandleFunc("/api/price_update", api.PriceUpdateHandler)
	mux.HandleFunc("/api/log_event", api.LogEventHandler)
	mux.HandleFunc("/api/delete_trades", sessions.Require(api.DeleteTradesHandler))
	mux.HandleFunc("/api/login", api.LoginHandler)
	mux.HandleFunc("/api/logout", api.LogoutHandler)

	// Live refresh signal for connected dashboards
	mux.HandleFunc("/ws", hub.HandleUpgrade)

	// Static file serving for CSS, JS, etc.
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))

	// HTML template serving
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "web/templates/index.html")
	})

	return mux
}

// NewServer builds the HTTP server around the wired routes.
func NewServer(port int, log *zap.Logger, api *APIHandler, sessions *auth.Sessions, hub *ws.Hub) *Server {
	return &Server{
		log: log,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           NewRouter(api, sessions, hub),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting web server", zap.String("address", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}
