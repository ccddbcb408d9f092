package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath string
	apiURL string
)

var rootCmd = &cobra.Command{
	Use:           "dietctl",
	Short:         "dietctl administers the diet app from your terminal",
	Long:          "dietctl manages users, invitations, recipes and statistics of the diet app through its REST API.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the local preferences database")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Base URL of the API (saved on login)")
}
