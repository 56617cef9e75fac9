// Command docparse parses document files and prints one JSON result per
// file.
//
// Usage:
//
//	docparse [flags] FILE...
//
// Every configuration key is available as a flag, as an NC_-prefixed
// environment variable (NC_CAPTIONING_ENABLED=true) and in an optional
// config file given with --config.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/tsawler/docparse"
	"github.com/tsawler/docparse/config"
)

var (
	version   = "dev"     // set by build flags
	gitCommit = "unknown" // set by build flags
)

// result is printed for each input file.
type result struct {
	Path     string `json:"path"`
	Document any    `json:"document"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "docparse:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("docparse", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.DefineFlags(fs)
	verbose := fs.BoolP("verbose", "v", false, "Log debug events to stderr")
	pretty := fs.Bool("pretty", false, "Indent JSON output")
	showVersion := fs.Bool("version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: docparse [flags] FILE...\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintf(stdout, "docparse %s (%s)\n", version, gitCommit)
		return nil
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no input files")
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	cfg.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := docparse.New(cfg)
	defer p.Close()

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	for _, path := range fs.Args() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		doc := p.Parse(ctx, path)
		if err := enc.Encode(result{Path: path, Document: doc}); err != nil {
			return fmt.Errorf("writing result for %s: %w", path, err)
		}
	}
	return nil
}
