// migrate applies the embedded authcore_kv schema from kv/migrations; run
// with go run ./cmd/migrate against AUTHCORE_DATABASE_URL.
package main

import (
	"flag"
	"fmt"
	"os"

	"authcore/config"
	"authcore/kv"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "AUTHCORE_DATABASE_URL is not set; set it in the environment or a .env file")
		os.Exit(1)
	}

	// Already being at the target version counts as success.
	if err := kv.Migrate(cfg.DatabaseURL, *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
