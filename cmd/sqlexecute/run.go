package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aimanaev/pgsqlThreadsExecute/config"
	"github.com/aimanaev/pgsqlThreadsExecute/executor"
	"github.com/aimanaev/pgsqlThreadsExecute/postgres"
)

var (
	maxConcurrent int

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Execute the batch concurrently",
		Long:  "Execute every statement in the scripts file as an independent unit\nacross the connection pool, bounded by the max-concurrency limit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), modeConcurrent)
		},
	}

	txCmd = &cobra.Command{
		Use:   "tx",
		Short: "Execute the batch in a single transaction",
		Long:  "Execute the statements of the scripts file sequentially inside one\ntransaction. The batch commits only if every statement succeeds.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), modeTransaction)
		},
	}
)

func init() {
	runCmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0,
		"max statements mid-flight at once (0 = pool max size)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(txCmd)
}

type runMode int

const (
	modeConcurrent runMode = iota
	modeTransaction
)

// runBatch is the shared glue for both modes: settings, scripts, engine,
// execution, report, teardown.
func runBatch(ctx context.Context, mode runMode) error {
	settings, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	batch, err := config.LoadScripts(scriptsFile)
	if err != nil {
		return err
	}
	if batch.Len() == 0 {
		return &executor.ConfigError{
			Message: fmt.Sprintf("no statements found in %s", scriptsFile),
		}
	}

	logger := executor.NewLogrusLogger(log.StandardLogger())
	opts := settings.EngineOptions(logger)
	if flagWasSet("max-concurrent") {
		opts.MaxConcurrent = maxConcurrent
	}

	engine, err := executor.New(postgres.NewFactory(settings.DSN(), settings.Addr()), opts)
	if err != nil {
		return err
	}
	if err := engine.Initialize(ctx); err != nil {
		return err
	}
	defer engine.Close(context.Background())

	var report *executor.BatchReport
	var runErr error
	switch mode {
	case modeTransaction:
		report, runErr = engine.RunTransaction(ctx, batch)
	default:
		report, runErr = engine.RunConcurrent(ctx, batch)
	}

	if report != nil {
		report.Render(os.Stdout)
	}
	if runErr != nil {
		return runErr
	}
	if report.SuccessCount < report.TotalCount {
		return fmt.Errorf("%d of %d statements failed",
			report.TotalCount-report.SuccessCount, report.TotalCount)
	}
	return nil
}
