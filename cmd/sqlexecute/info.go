package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var (
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Show setup instructions",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(infoText)
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sqlexecute v%s\n", version)
		},
	}
)

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(versionCmd)
}

const infoText = `Running SQL batches
1. Set the database connection parameters via environment variables:
     DATABASE_HOST, DATABASE_PORT, DATABASE_DB, DATABASE_USER,
     DATABASE_PASSWORD, DATABASE_CONNECTIONS_MIN, DATABASE_CONNECTIONS_MAX,
     DATABASE_CONNECTION_TIMEOUT, DATABASE_COMMAND_TIMEOUT,
     ASYNC_CONCURRENT_MAX
2. Fill in the list of statements to execute in the scripts file
   (default ./config/scripts.yml).

Example scripts.yml:

  scripts:
    "check connection":
      sql: |
        SELECT 1 AS value
      timeout: 30          # optional, seconds

    "active users":
      sql: |
        SELECT * FROM users WHERE active = $1
      params: [true]       # optional positional bind values

Then run one of:
  sqlexecute run   # concurrent, independent statements
  sqlexecute tx    # sequential, single transaction, all-or-nothing
`
