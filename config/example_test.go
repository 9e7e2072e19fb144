package config_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sagarc03/mediarelay/config"
)

func ExampleLoad() {
	_ = os.Setenv("MEDIARELAY_API_URL", "https://api.example.com/prod/users")
	_ = os.Setenv("MEDIARELAY_STORAGE_S3_BUCKET", "media")
	defer func() {
		_ = os.Unsetenv("MEDIARELAY_API_URL")
		_ = os.Unsetenv("MEDIARELAY_STORAGE_S3_BUCKET")
	}()

	cfg, err := config.Load(nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Port: %d, Backend: %s\n", cfg.Server.Port, cfg.Storage.Backend)
	// Output: Port: 5000, Backend: s3
}

func ExampleWithContext() {
	cfg := &config.Config{Server: config.ServerConfig{Port: 5000}}

	// Store config in context
	ctx := config.WithContext(context.Background(), cfg)

	// Retrieve later (e.g., in a subcommand)
	retrieved, err := config.FromContext(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Retrieved port: %d\n", retrieved.Server.Port)
	// Output: Retrieved port: 5000
}
