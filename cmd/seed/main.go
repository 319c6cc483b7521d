package main

import (
	"context"
	"flag"
	"log"
	"time"

	"sierra/internal/seed"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "base URL of the running server")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall seeding deadline")
	flag.Parse()

	seeder := seed.NewSeeder(seed.Config{ServerURL: *serverURL})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := seeder.Run(ctx); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
