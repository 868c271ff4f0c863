package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "tenantauth",
		Short:        "Multi-tenant legacy user authentication service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServer(cmd.Context())
			},
		},
		newSeedCommand(),
	)

	return rootCmd
}

func newSeedCommand() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert development fixture users",
		Long: "Insert admin@test.com, user@test.com and migrated@test.com into the " +
			"default database or the tenant named by --tenant. Existing emails are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), tenantID)
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant to seed (default database when empty)")

	return cmd
}
