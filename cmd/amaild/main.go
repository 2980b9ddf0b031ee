// Command amaild runs the agent mail core as an MCP server over stdio.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dicklesworth/agentmail/internal/app"
	"github.com/dicklesworth/agentmail/internal/mcpshell"
)

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (optional)")
	debug := flag.Bool("debug", false, "use a development (console, debug-level) logger")
	flag.Parse()

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "amaild: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	core, err := app.Build(*configPath)
	if err != nil {
		logger.Fatal("failed to build core", zap.Error(err))
	}
	defer core.Close()

	stopWatch, err := core.Archive.WatchExternalEdits(logger)
	if err != nil {
		logger.Warn("external archive watch disabled", zap.Error(err))
	} else {
		defer stopWatch()
	}

	server := mcpshell.NewServer(mcpshell.Deps{
		Store:       core.Store,
		Mail:        core.Mail,
		Reservation: core.Reservation,
		Contact:     core.Contact,
		Search:      core.Search,
		Archive:     core.Archive,
		Bus:         core.Bus,
		Config:      core.Config,
		Version:     Version,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("amaild starting", zap.String("version", Version), zap.String("data_root", core.Config.DataRoot))
	if err := mcpshell.Run(ctx, server); err != nil && ctx.Err() == nil {
		logger.Fatal("mcp server error", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
