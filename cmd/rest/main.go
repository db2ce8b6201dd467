package main

import (
	"context"
	"log"

	"lexchat-be/internal/bootstrap"
	"lexchat-be/internal/config"
	"lexchat-be/internal/server"
	"lexchat-be/internal/tracer"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)

	// 3. Start Background Subscribers
	ctx := context.Background()
	if err := container.SessionService.Start(ctx); err != nil {
		log.Printf("Background: session subscriber failed to start: %v", err)
	}
	if err := container.EntitlementService.Start(ctx); err != nil {
		log.Printf("Background: entitlement subscriber failed to start: %v", err)
	}

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server
	log.Fatal(srv.Run())
}
