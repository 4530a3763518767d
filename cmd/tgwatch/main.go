package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tgwatch",
	Short: "tgwatch - live sync task monitor for tgvault",
	Long:  `tgwatch attaches to a tgvault sync task and renders its progress in the terminal, polling the status endpoint until the task reaches a terminal state.`,
}

var (
	serverAddr string
	apiToken   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "http://127.0.0.1:8090", "tgvault server address")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "API token (falls back to TGVAULT_API_TOKEN, then the OS keyring)")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cancelCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
