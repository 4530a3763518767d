package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
)

const (
	keyringService = "tgwatch"
	keyringUser    = "api-token"
)

// resolveToken picks the API token from the --token flag, then the
// TGVAULT_API_TOKEN environment variable, then the OS keyring. An empty
// result is fine when the server runs without auth.
func resolveToken() string {
	if apiToken != "" {
		return apiToken
	}
	if env := os.Getenv("TGVAULT_API_TOKEN"); env != "" {
		return env
	}
	stored, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		return ""
	}
	return stored
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the API token stored in the OS keyring",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set <token>",
	Short: "Store an API token in the OS keyring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keyring.Set(keyringService, keyringUser, args[0]); err != nil {
			return fmt.Errorf("failed to store token: %w", err)
		}
		fmt.Println("Token stored.")
		return nil
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the API token from the OS keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keyring.Delete(keyringService, keyringUser); err != nil {
			if err == keyring.ErrNotFound {
				fmt.Println("No token stored.")
				return nil
			}
			return fmt.Errorf("failed to remove token: %w", err)
		}
		fmt.Println("Token removed.")
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenClearCmd)
	rootCmd.AddCommand(tokenCmd)
}
