// Command spotify-mood-recommender runs the mood-based music recommendation
// server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/moodtracks/go-spotify-mood-recommender/internal/config"
	"github.com/moodtracks/go-spotify-mood-recommender/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	paths := []string{"config.yaml", "config.local.yaml"}
	if *configPath != "" {
		paths = []string{*configPath}
	}

	cfg, err := config.Load(paths...)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	server, err := web.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run()
}
