package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/squareup/reconcile/pkg/merge"
)

var cli struct {
	merge.Merge `cmd:"" help:"Reconcile a table against a spreadsheet, one field at a time"`
}

// loadEnvFiles loads the files that exist, in order. Variables already
// set in the environment win over the files.
func loadEnvFiles(files ...string) error {
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("could not load %s: %w", file, err)
		}
	}
	return nil
}

func main() {
	if err := loadEnvFiles(".env", ".env.local"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx := kong.Parse(&cli,
		kong.Name("reconcile"),
		kong.Description("Merge corrections from an expert-maintained spreadsheet into a database table."),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := kctx.Run()
	stop()
	kctx.FatalIfErrorf(err)
}
