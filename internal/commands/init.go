package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/store/sqlite"
)

func newInitCommand() *cobra.Command {
	var businessID string
	var name string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runInit(absDir, businessID, name)
		},
	}

	cmd.Flags().StringVar(&businessID, "business-id", "", "business identifier (required)")
	_ = cmd.MarkFlagRequired("business-id")
	cmd.Flags().StringVar(&name, "name", "", "business display name")

	return cmd
}

func runInit(dir, businessID, name string) error {
	cfg := config.Default(businessID, name)
	cfg.Storage.DBPath = filepath.Join(dir, cfg.Storage.DBPath)

	if err := config.Save(filepath.Join(dir, "ledgerline.yaml"), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Opening the database creates the schema.
	st, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer st.Close()

	fmt.Printf("Initialized ledger for %s at %s\n", businessID, dir)
	return nil
}
