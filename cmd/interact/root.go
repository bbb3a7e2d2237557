package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

const (
	envServer     = "ADHERENCE_API_URL"
	defaultServer = "http://localhost:8080/api"
)

var rootCmd = &cobra.Command{
	Use:          "interact",
	Short:        "Terminal driver for the medication adherence dialogue",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("server", "", "API base URL (overrides "+envServer+")")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "Per-request timeout")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// newClient resolves the API base URL from --server, then the environment,
// then the local default.
func newClient(cmd *cobra.Command) *client {
	base, _ := cmd.Flags().GetString("server")
	if base == "" {
		base = os.Getenv(envServer)
	}
	if base == "" {
		base = defaultServer
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return newAPIClient(base, timeout)
}
