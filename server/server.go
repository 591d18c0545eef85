package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/parleyhq/parley/config"
	"github.com/parleyhq/parley/db"
	"github.com/parleyhq/parley/realtime"
	"github.com/parleyhq/parley/services"
)

// Server wires the REST API and the websocket relay together.
type Server struct {
	Config         *config.Config
	AuthRepository db.AuthRepository
	ChatRepository db.ChatRepository
	AuthService    services.AuthService
	ChatService    services.ChatService
	AIService      services.AIService
	Hub            *realtime.Hub
	DB             db.GormDB
}

// Start runs the server until interrupted, then drains in-flight requests.
// Websocket connections are not drained; clients reconnect and re-announce
// presence on their own.
func (s *Server) Start() {
	r := s.setupRouter()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Config.Port),
		Handler: r,
	}

	go func() {
		log.Printf("Server started on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	log.Println("Server exiting")
}
