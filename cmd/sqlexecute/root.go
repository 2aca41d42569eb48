package main

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	rootCmd = &cobra.Command{
		Use:               "sqlexecute",
		Short:             "Run named SQL batches against PostgreSQL",
		Long:              "sqlexecute runs a named batch of SQL statements from a scripts file,\neither concurrently or inside a single transaction, and reports per-statement\noutcomes.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: rootPreRun,
		PersistentPostRun: rootPostRun,
	}

	logFile   = "sqlexecute.log"
	logLevel  = "info"
	logStderr = false
	logWriter io.WriteCloser

	configFile  = ""
	scriptsFile = "./config/scripts.yml"

	usedFlags = map[string]struct{}{}
)

func init() {
	log.SetFormatter(&log.TextFormatter{
		DisableLevelTruncation: true,
	})

	fs := rootCmd.PersistentFlags()
	fs.StringVar(&logFile, "log-file", logFile, "`file` to use for logging")
	fs.StringVar(&logLevel, "log-level", logLevel,
		"log level: trace, debug, info, warn, error, fatal, or panic")
	fs.BoolVarP(&logStderr, "log-stderr", "s", logStderr, "log to standard error")
	fs.StringVar(&configFile, "config-file", configFile, "optional settings `file` (YAML)")
	fs.StringVar(&scriptsFile, "scripts-file", scriptsFile, "`file` with the named SQL batch")
}

// Execute runs the CLI.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sqlexecute: %s\n", err)
	}
	return err
}

func rootPreRun(cmd *cobra.Command, args []string) error {
	cmd.Flags().Visit(
		func(flg *pflag.Flag) {
			usedFlags[flg.Name] = struct{}{}
		})

	if !logStderr && logFile != "" {
		var err error
		logWriter, err = os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			logWriter = nil
			return fmt.Errorf("sqlexecute: %s", err)
		}
		log.SetOutput(logWriter)
	}

	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("sqlexecute: %s", err)
	}
	log.SetLevel(ll)

	log.WithField("pid", os.Getpid()).Info("sqlexecute starting")
	return nil
}

func rootPostRun(cmd *cobra.Command, args []string) {
	log.WithField("pid", os.Getpid()).Info("sqlexecute done")

	if logWriter != nil {
		logWriter.Close()
	}
}

// flagWasSet reports whether the user passed the flag explicitly, so command
// line values can override file/env configuration only when present.
func flagWasSet(name string) bool {
	_, ok := usedFlags[name]
	return ok
}
