package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"CocoStock/internal/cli/commands"
	"CocoStock/internal/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	os.Exit(run())
}

// run отделён от main, чтобы отложенные вызовы отработали до os.Exit.
func run() int {
	// env + .env + флаги; команда и её аргументы остаются в flag.Args()
	cfg := config.NewConfig()

	if cfg.Version {
		fmt.Fprintf(commands.Out, "cscli (CocoStock CLI)\nVersion: %s\nBuild date: %s\nServer: %s\n",
			version, buildDate, cfg.ServerURL)
		return commands.ExitOK
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return commands.Dispatch(ctx, cfg, flag.Args())
}
