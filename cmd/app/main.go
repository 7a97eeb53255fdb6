package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := initializeApp()
	if err != nil {
		log.Fatalf("failed to wire companion service: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("companion service stopped with error: %v", err)
	}
}
