// Command intake drives the analysis service from the command line.
// Usage:
//
//	intake analyze [-corners x1,y1,...,x4,y4] [-out result.json] <image>
//	intake rerun [-mode enhanced] [-out result.json] <image>
//	intake history [-limit 50] [-format csv|xlsx] [-out file]
//	intake job <job-id>
//	intake save-example [-prefix name] <result.json>
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"scandesk/internal/config"
	"scandesk/internal/intakeapi"
	"scandesk/internal/service"
)

const usage = `usage: intake <command> [flags] [args]

commands:
  analyze        analyze an image, optionally with manual corners
  rerun          analyze an image, then re-run OCR in enhanced mode
  history        export recent intake history as csv or xlsx
  job            show the status of an analysis job
  save-example   save a result JSON as a labelled example`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		log.Fatal(err)
	}
}

func run(cmd string, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := intakeapi.NewClient(&cfg.Service)
	archive, err := newArchiveService(cfg, client)
	if err != nil {
		return fmt.Errorf("initializing archive: %w", err)
	}
	app := &cli{
		analyzer: service.NewAnalyzer(&cfg.Service, client, client),
		history:  service.NewHistoryService(client, client, cfg.History.Limit),
		archive:  archive,
		out:      os.Stdout,
	}

	switch cmd {
	case "analyze":
		return app.analyze(ctx, args)
	case "rerun":
		return app.rerun(ctx, args)
	case "history":
		return app.exportHistory(ctx, args)
	case "job":
		return app.job(ctx, args)
	case "save-example":
		return app.saveExample(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprintln(os.Stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}
