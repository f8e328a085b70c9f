package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"wren/internal/archive"
	"wren/internal/blobstorage"
	"wren/internal/conf"
)

func main() {
	// Command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	statePath := flag.String("state", "", "Path to sync state database (overrides config)")
	flag.Parse()

	log.Println("Starting wren archive service...")

	// Load configuration
	var cfg *conf.Config
	var err error
	if *configPath != "" {
		cfg, err = conf.LoadConfig(*configPath)
	} else {
		cfg, err = conf.LoadConfig()
	}
	if err != nil {
		log.Printf("Warning: failed to load config: %v", err)
		log.Println("Using default configuration")
		cfg = conf.DefaultConfig()
	}
	if *statePath != "" {
		cfg.State.Path = *statePath
	}

	if len(cfg.Accounts) == 0 {
		log.Fatal("No accounts configured")
	}

	// Cancel the sync on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open sync state database
	state, err := archive.OpenState(cfg.State.Path)
	if err != nil {
		log.Fatalf("Failed to open state database: %v", err)
	}
	defer state.Close()

	log.Printf("State database: %s", cfg.State.Path)

	// Open blob storage
	store, err := blobstorage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open blob storage: %v", err)
	}

	archiver := archive.New(store, state, cfg.Sync)

	total := 0
	for _, acct := range cfg.Accounts {
		if ctx.Err() != nil {
			break
		}
		log.Printf("Syncing account %s (%s@%s)", acct.ID, acct.User, acct.Host)
		n, err := archiver.SyncAccount(ctx, acct)
		total += n
		if err != nil {
			log.Printf("Account %s: %v", acct.ID, err)
			continue
		}
		log.Printf("Account %s: %d new messages", acct.ID, n)
	}

	log.Printf("Archive run complete: %d new messages", total)
}
