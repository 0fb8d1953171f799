package main

import (
	"fmt"
	"strings"

	"github.com/arqaam/mangactl/internal/auth"
	"github.com/spf13/cobra"
)

func newEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage the API token in the OS Keychain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvStatus(cmd)
		},
	}

	cmd.SetUsageTemplate(envUsageTemplate)
	cmd.AddCommand(
		newEnvSetupCmd(),
		newEnvDeleteCmd(),
		newEnvStatusCmd(),
	)
	return cmd
}

func newEnvSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Save the API token to the keychain (prompt only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvSetup(cmd)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newEnvDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the API token from the keychain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvDelete(cmd)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newEnvStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show token status (default if no action given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvStatus(cmd)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func runEnvSetup(cmd *cobra.Command) error {
	promptToken, err := auth.PromptForToken("API Token: ")
	if err != nil {
		return fmt.Errorf("error reading token: %w", err)
	}
	token := strings.TrimSpace(promptToken)
	if token == "" {
		return fmt.Errorf("API token is required for setup")
	}
	if err := auth.SaveToken(token); err != nil {
		return fmt.Errorf("error saving token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Saved API token to keychain.")
	return nil
}

func runEnvDelete(cmd *cobra.Command) error {
	if err := auth.DeleteToken(); err != nil {
		return fmt.Errorf("error deleting token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Deleted API token from keychain.")
	return nil
}

func runEnvStatus(cmd *cobra.Command) error {
	if getStatus() {
		fmt.Fprintln(cmd.OutOrStdout(), "API Token: Found (source=Keychain)")
		return nil
	}
	if envToken, ok := getEnvToken(); ok && envToken != "" {
		fmt.Fprintln(cmd.OutOrStdout(), "API Token: Found (source=Environment Variable; disabled by default, use --allow-env)")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "API Token: Not Found (keychain empty, env not set)")
	return nil
}
