package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gridloop/internal/app"
	"gridloop/internal/config"
	"gridloop/internal/orchestrator"
	"gridloop/internal/service"
	"gridloop/internal/transport/rest"
	"gridloop/internal/transport/ws"
)

func main() {
	log.Println("started")
	ctx := context.Background()
	cfg := config.Load()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open store:", err)
	}
	defer a.Close()

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	orchCfg := orchestrator.DefaultConfig()
	orchCfg.PlayCapacity = cfg.PlayRoomCapacity
	orchCfg.ShareCapacity = cfg.ShareRoomCapacity
	log.Printf("Room capacity: play=%d share=%d", orchCfg.PlayCapacity, orchCfg.ShareCapacity)

	// Initialize services
	authSvc := service.NewAuthService(cfg.JWTSecret)
	registries := service.NewRegistries(orchestrator.New(orchCfg))
	roomSvc := service.NewRoomService(a.Store, registries)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	roomSvc.SetBroadcaster(wsHub)

	container := &rest.Container{
		AuthService: authSvc,
		RoomService: roomSvc,
		WSHub:       wsHub,
		CORSOrigins: cfg.CORSOrigins,
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		log.Println("Endpoints:")
		log.Println("  POST /v1/auth/client")
		log.Println("  POST /v1/rooms/play")
		log.Println("  POST /v1/rooms/{roomID}/push")
		log.Println("  GET  /v1/rooms/{roomID}/pull")
		log.Println("  GET  /v1/orchestrator/assignment")
		log.Println("  WS   /v1/ws/rooms/{roomID}")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
