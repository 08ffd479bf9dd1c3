package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/opencatalog/arcs/internal/app"
	"github.com/opencatalog/arcs/internal/platform/config"
	db "github.com/opencatalog/arcs/internal/storage"
)

func main() {
	mode := flag.String("mode", "", "Service mode (sample, launch, fetch-results, fetch-judgments, summarize)")
	groupName := flag.String("group-name", "", "Name for the new group (sample mode)")
	groupDescription := flag.String("group-description", "", "Description for the new group (sample mode)")
	tasks := flag.String("tasks", "tasks.json", "Task rows file, JSON lines (sample and launch modes)")
	jobID := flag.String("job", "", "External crowdsourcing job id (fetch modes)")
	group1 := flag.String("group1", "", "Baseline group id (summarize mode)")
	group2 := flag.String("group2", "", "Experimental group id (summarize mode)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolOpts := db.PoolOptions{
		MaxConns:          cfg.DBMaxConnections,
		MinConns:          cfg.DBMinConnections,
		MaxConnIdleTime:   cfg.DBMaxConnIdleTime,
		MaxConnLifetime:   cfg.DBMaxConnLifetime,
		HealthCheckPeriod: cfg.DBHealthCheckPeriod,
	}

	database, err := db.NewWithOptions(ctx, cfg.PostgresDSN, poolOpts, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	application := app.New(cfg, database, &logger)

	// Start health server in background
	go func() {
		if err := application.StartHealthServer(ctx); err != nil {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	flags := modeFlags{
		groupName:        *groupName,
		groupDescription: *groupDescription,
		tasks:            *tasks,
		jobID:            *jobID,
		group1:           *group1,
		group2:           *group2,
		logFiles:         flag.Args(),
	}

	if err := runMode(ctx, application, *mode, flags); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

type modeFlags struct {
	groupName        string
	groupDescription string
	tasks            string
	jobID            string
	group1           string
	group2           string
	logFiles         []string
}

func runMode(ctx context.Context, application *app.App, mode string, flags modeFlags) error {
	switch mode {
	case "sample":
		if len(flags.logFiles) == 0 {
			return errors.New("sample mode requires query log files as positional arguments")
		}

		if flags.groupName == "" {
			return errors.New("sample mode requires --group-name")
		}

		return application.RunSample(ctx, flags.logFiles, flags.groupName, flags.groupDescription, flags.tasks)
	case "launch":
		return application.RunLaunch(ctx, flags.tasks)
	case "fetch-results":
		if flags.jobID == "" {
			return errors.New("fetch-results mode requires --job")
		}

		return application.RunFetchResults(ctx, flags.jobID)
	case "fetch-judgments":
		if flags.jobID == "" {
			return errors.New("fetch-judgments mode requires --job")
		}

		return application.RunFetchJudgments(ctx, flags.jobID)
	case "summarize":
		if flags.group1 == "" || flags.group2 == "" {
			return errors.New("summarize mode requires --group1 and --group2")
		}

		return application.RunSummarize(ctx, flags.group1, flags.group2)
	default:
		return fmt.Errorf("usage: %s --mode=[sample|launch|fetch-results|fetch-judgments|summarize]", os.Args[0])
	}
}
