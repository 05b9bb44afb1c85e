package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eringen/bloglist"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		if err := runServe(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("bloglist %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", bloglist.EnvOr("BLOGLIST_CONFIG", ""), "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := bloglist.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	app := bloglist.New(cfg)
	defer app.Close()
	if err := app.Setup(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

func printUsage() {
	fmt.Println(`bloglist - A blog list REST backend built with Go, Echo, and SQLite

Usage:
  bloglist [command] [flags]

Commands:
  serve         Start the HTTP server (default)
  version       Print the bloglist version
  help          Show this help message

Flags for serve:
  -config path  YAML config file (env BLOGLIST_CONFIG)

Environment:
  SECRET        Token signing secret (required)
  PORT          Listen port (default 3003)
  BLOGLIST_DB   SQLite database path
  NODE_ENV      production, development or test`)
}
