package main

import (
	"bufio"
	"context"
	"log"
	"os"

	"github.com/SediraYasser20/DOLX/internal/adapters/cli"
	"github.com/SediraYasser20/DOLX/internal/adapters/repl"
	"github.com/SediraYasser20/DOLX/internal/app"
	"github.com/SediraYasser20/DOLX/internal/config"
	"github.com/SediraYasser20/DOLX/internal/core"
	"github.com/SediraYasser20/DOLX/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Unable to build logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	backend, err := db.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Unable to open database: %v", err)
	}
	defer backend.Close()

	resolver := core.NewPriceResolver(backend.Store, cfg.Pricing, logger)
	posting := core.NewLedgerPostingService(backend.Store, cfg.Posting, logger)
	svc := app.NewAppService(resolver, posting, cfg.BankEnabled, logger)

	// No subcommand → interactive session.
	if len(os.Args) < 2 {
		repl.Run(ctx, svc, bufio.NewReader(os.Stdin), os.Stdout, cfg.Posting.BaseCurrency)
		return
	}
	cli.Run(ctx, svc, os.Args[1:])
}
