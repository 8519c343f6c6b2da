// Command prospect-enrich enriches one establishment from the command line
// and prints the profile as JSON, for operators checking a single prospect.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"prospection_backend/internal/prospection"
	"prospection_backend/platform/cache"
	"prospection_backend/platform/config"
	"prospection_backend/platform/logger"
)

func main() {
	id := flag.String("id", "", "9-digit siren or 14-digit siret (required)")
	product := flag.String("product", "", "product hint: destratification, calorifugeage, matelas")
	withContact := flag.Bool("contact", false, "run the paid contact enrichment when configured")
	flag.Parse()

	if *id == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)

	var store cache.Store = cache.NewMemory()
	if cfg.GetRedisAddr() != "" {
		store = cache.NewRedis(cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisDB())
	}

	module := prospection.New(cfg, store, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profile, err := module.Service.Enrich(ctx, *id, *product, *withContact)
	if err != nil {
		fmt.Fprintln(os.Stderr, "enrichment failed:", err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(profile); err != nil {
		fmt.Fprintln(os.Stderr, "encoding failed:", err)
		os.Exit(1)
	}
}
