package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/noah-isme/uni-timetable-api/internal/bootstrap"
	"github.com/noah-isme/uni-timetable-api/internal/cli"
	"github.com/noah-isme/uni-timetable-api/pkg/config"
	"github.com/noah-isme/uni-timetable-api/pkg/logger"
)

var CLI struct {
	Version kong.VersionFlag

	Generate    cli.GenerateCmd    `cmd:"" help:"Generate a timetable for groups."`
	Validate    cli.ValidateCmd    `cmd:"" help:"Check the groups' assignments for conflicts."`
	Stats       cli.StatsCmd       `cmd:"" help:"Show schedule statistics for groups."`
	TimeWindows cli.TimeWindowsCmd `cmd:"" name:"time-windows" help:"List named time windows."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("timetable-cli"),
		kong.Description("University timetable generation and validation"),
		kong.UsageOnError(),
		kong.Vars{"version": "v1.0.0"},
	)

	if err := run(kctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(kctx *kong.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := bootstrap.New(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer container.Close() //nolint:errcheck

	return kctx.Run(&cli.Context{
		Ctx:       ctx,
		Generator: container.Generator,
		Inspector: container.Generator,
		Out:       os.Stdout,
	})
}
