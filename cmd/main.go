package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"

	"chatroom/auth"
	"chatroom/domain"
	"chatroom/httpapi"
	"chatroom/internal"
	"chatroom/moderation"
	"chatroom/repositories"
	"chatroom/runtime"
	"chatroom/runtime/workers"
	"chatroom/search"
	"chatroom/services"
	"chatroom/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the HTTP server and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	// Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = writer.Close()
	}()

	// 3. Core wiring
	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(registry, log)
	index := search.NewRoomIndex(writer, log)
	limiter := moderation.NewRateLimiter(config.RateLimit, config.RateWindow, log)
	pipeline, err := moderation.NewPipeline(config.MaxContentLength, limiter, log)
	if err != nil {
		return fmt.Errorf("moderation pipeline setup failed: %w", err)
	}
	gate := auth.NewGate([]byte(config.JWTSecret), config.AuthTokenDuration)

	userRepository := repositories.NewUserRepository(db)
	roomRepository := repositories.NewRoomRepository(db)
	messageRepository := repositories.NewMessageRepository(db, log)

	authService := services.NewAuthService(userRepository, gate)
	roomService := services.NewRoomService(roomRepository, messageRepository, registry, broadcaster, index, limiter, log)
	chatService := services.NewChatService(roomRepository, messageRepository, pipeline, broadcaster, log)
	privateService := services.NewPrivateService(messageRepository, registry, broadcaster, pipeline, log)

	// 4. Rebuild the search index from the public catalog
	listings, err := roomRepository.ListPublicRooms()
	if err != nil {
		return fmt.Errorf("room catalog scan failed: %w", err)
	}
	publicRooms := lo.Map(listings, func(l domain.RoomListing, _ int) domain.Room { return l.Room })
	if err := index.Rebuild(publicRooms); err != nil {
		return fmt.Errorf("search index rebuild failed: %w", err)
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Background workers under supervision
	sup := workers.NewSupervisor(log)
	sup.Add(
		workers.NewJanitorWorker(log, limiter, config.SweepInterval),
		workers.NewTelemetryWorker(log, config.MetricInterval),
	)
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	if config.EnableDebugServer {
		internal.StartDebugServer(db, config.DebugPort, nil, func() map[string]any {
			return map[string]any{
				"Rooms": len(publicRooms),
				"Time":  time.Now().Format(time.RFC822),
			}
		})
		log.Info("Debug inspector started", "port", config.DebugPort)
	}

	// 7. HTTP server (REST + websocket)
	handler := httpapi.NewHandler(authService, roomService, chatService, log)
	wsServer := ws.NewServer(gate, registry, broadcaster, roomService, chatService, privateService, log)
	router := httpapi.NewRouter(handler, gate, wsServer)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: router}

	// Use an error channel to capture Serve() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown was not clean", "err", err)
	}
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}
