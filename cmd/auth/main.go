// Command auth runs the bookmarks authentication service. All settings come
// from the environment; see app.LoadConfig.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aussiebroadwan/bookmarks/internal/auth/app"
)

func main() {
	cfg := app.LoadConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(2)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize bookmarks auth: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("bookmarks auth stopped: %v", err)
	}
}
