package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"codepilot-be/internal/bootstrap"
	"codepilot-be/internal/config"
	"codepilot-be/internal/server"
	"codepilot-be/internal/tracer"
	"codepilot-be/pkg/database"

	"github.com/hashicorp/go-multierror"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// Tracer is a no-op unless OTEL_ENABLED=true
	shutdownTracer := tracer.Init(cfg.Tracing)

	// 2. Initialize Database
	gormDB, err := database.Open(cfg.Database.Connection, database.OptionsFor(cfg.App.Environment))
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	container.Start(ctx)

	// 5. Initialize Server
	srv := server.New(cfg, container)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Run()
	}()

	// 6. Run until a signal or a listen failure
	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case err := <-serveErr:
		log.Printf("Server stopped: %v", err)
	}
	stop()

	var result error
	if err := srv.Shutdown(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := container.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := shutdownTracer(context.Background()); err != nil {
		result = multierror.Append(result, err)
	}
	if result != nil {
		log.Fatalf("Shutdown finished with errors: %v", result)
	}
	log.Println("Shutdown complete")
}
