package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/tazhate/calbridge/config"
	"github.com/tazhate/calbridge/internal/clients/osascript"
	"github.com/tazhate/calbridge/internal/debuglog"
	"github.com/tazhate/calbridge/internal/ics"
	"github.com/tazhate/calbridge/internal/scheduler"
	"github.com/tazhate/calbridge/internal/service"
	"github.com/tazhate/calbridge/internal/setup"
	"github.com/tazhate/calbridge/internal/storage"
)

type options struct {
	dataDir   string
	setup     bool
	testMode  bool
	exportICS string
	days      int
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stderr)

	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options

	flagSet := pflag.NewFlagSet("calbridge", pflag.ContinueOnError)
	flagSet.StringVar(&opts.dataDir, "data-dir", "", "directory for setting.json, config.json and logs (overrides CALBRIDGE_DATA_DIR)")
	flagSet.BoolVar(&opts.setup, "setup", false, "choose the calendar and reminder list interactively, then exit")
	flagSet.BoolVar(&opts.testMode, "test-mode", false, "initialize, print the connection status and exit")
	flagSet.StringVar(&opts.exportICS, "export-ics", "", "write events and reminders of the window to this .ics file and exit")
	flagSet.IntVar(&opts.days, "days", 0, "window in days for --export-ics (default from config.json)")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}

	logger := debuglog.New(cfg.DebugPath())
	if cfg.Debug {
		logger.SetConsole(log.New(os.Stderr, "", log.LstdFlags))
	}

	executor := osascript.NewExecutor(cfg.OsascriptPath, logger)
	store := storage.NewStore(cfg.SettingsPath(), cfg.AppConfigPath(), logger)
	activity := storage.NewActivityLog(cfg.ActivityPath(), logger)
	svc := service.NewCalendarService(store, executor, activity, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// stdout carries protocol traffic, so the prompt only runs on a real
	// terminal and writes to stderr.
	var prompter service.Prompter
	if term.IsTerminal(int(os.Stdin.Fd())) {
		prompter = setup.NewPrompter(os.Stdin, os.Stderr)
	}

	switch {
	case opts.setup:
		if prompter == nil {
			return errors.New("--setup needs an interactive terminal")
		}
		if err := svc.Init(ctx, prompter); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, formatStatus(svc.ConnectionStatus()))
		fmt.Fprintf(os.Stderr, "Settings: %s\n", store.SettingsPath())
		return nil

	case opts.testMode:
		if err := svc.Init(ctx, prompter); err != nil {
			return err
		}
		fmt.Println(formatStatus(svc.ConnectionStatus()))
		log.Printf("Test mode: state %s", svc.State())
		return nil

	case opts.exportICS != "":
		if err := svc.Init(ctx, prompter); err != nil {
			return err
		}
		return exportICS(ctx, svc, logger, opts.exportICS, opts.days)
	}

	return serve(ctx, cfg, svc, prompter)
}

func serve(ctx context.Context, cfg *config.Config, svc *service.CalendarService, prompter service.Prompter) error {
	if prompter == nil {
		log.Println("stdin is not a terminal, interactive setup skipped; run with --setup to choose calendars")
	}
	if err := svc.Init(ctx, prompter); err != nil {
		// Tools report the same failure per call; keep serving.
		log.Printf("Initialization incomplete: %v", err)
	}
	log.Printf("calbridge started (state: %s, data: %s)", svc.State(), cfg.DataDir)

	sched := scheduler.New(cfg.RevalidateSpec, svc)
	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Printf("Scheduler error: %v", err)
		}
	}()
	defer sched.Stop()

	server := NewMCPServer(svc, os.Stdin, os.Stdout)
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	select {
	case err := <-done:
		log.Println("Input closed, shutting down")
		return err
	case <-ctx.Done():
		log.Println("Shutting down...")
		return nil
	}
}

func exportICS(ctx context.Context, svc *service.CalendarService, logger *debuglog.Logger, path string, days int) error {
	window, _ := svc.EffectiveWindow(days, 0)
	res := svc.GetEventsAndReminders(ctx, window, 0, 0)
	if res.EventsErr != nil {
		log.Printf("Events not exported: %v", res.EventsErr)
	}
	if res.RemindersErr != nil {
		log.Printf("Reminders not exported: %v", res.RemindersErr)
	}

	exporter := ics.NewExporter(logger)
	cal, stats := exporter.Build(res.Events, res.Reminders)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := exporter.Write(f, cal); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	log.Printf("Exported %d events and %d reminders for %d day(s) to %s (%d skipped)",
		stats.Events, stats.Reminders, window, path, stats.Skipped)
	return nil
}
