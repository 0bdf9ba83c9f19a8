package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"emojipress/config"
	"emojipress/logging"
	"emojipress/notify"
	"emojipress/report"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/test_notify <config.yaml>")
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(true)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	d := notify.NewDispatcher(cfg.Notify, logger)
	if d.Len() == 0 {
		log.Fatalf("No notifiers enabled in %s", os.Args[1])
	}

	r := report.Build(
		report.Configuration{
			InputDirectory:  cfg.InputDir,
			OutputDirectory: cfg.OutputDir,
			TargetSize:      cfg.TargetLabel(),
			Quality:         cfg.Quality,
			Format:          cfg.Format,
		},
		[]report.PlatformResults{{
			Name: "test",
			Results: []report.FileResult{{
				OriginalFile:     "sample.png",
				NewFile:          "sample.avif",
				OutputFormat:     "AVIF",
				OriginalSize:     4096,
				NewSize:          1024,
				CompressionRatio: report.Ratio(4096, 1024),
				TargetSize:       cfg.TargetLabel(),
				Success:          true,
			}},
		}},
		cfg.Quality,
		time.Now(),
	)

	fmt.Printf("Sending sample report %s to %d notifier(s)...\n", r.RunID, d.Len())
	if err := d.Notify(context.Background(), r); err != nil {
		log.Fatalf("Notification failed: %v", err)
	}

	fmt.Println("✅ Notifications sent successfully!")
	if cfg.Notify.Email.Enabled {
		fmt.Printf("Check your email at: %s\n", cfg.Notify.Email.Recipient)
	}
}
