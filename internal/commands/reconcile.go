package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline/internal/recon"
)

func newReconcileCommand() *cobra.Command {
	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile transactions against documents",
	}
	reconcileCmd.PersistentFlags().String("user", "cli", "user id recorded on manual actions")

	reconcileCmd.AddCommand(newReconcileMatchCommand())
	reconcileCmd.AddCommand(newReconcileAutoCommand())
	reconcileCmd.AddCommand(newReconcileManualCommand())
	reconcileCmd.AddCommand(newReconcileUnmatchCommand())
	reconcileCmd.AddCommand(newReconcileExcludeCommand())
	return reconcileCmd
}

func reconScope(cmd *cobra.Command, e *env) recon.Scope {
	user, _ := cmd.Flags().GetString("user")
	return recon.Scope{BusinessID: e.cfg.Business.ID, UserID: user}
}

func newReconcileMatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "match <document-id>",
		Short: "Find and persist match suggestions for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			matches, err := e.reconService().MatchDocument(cmd.Context(), reconScope(cmd, e), args[0])
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Println("no matches found")
				return nil
			}
			for _, m := range matches {
				fmt.Printf("%s  %.2f  %s  (%s)\n", m.TransactionID, m.Confidence, m.Status, m.Reason)
			}
			return nil
		},
	}
}

func newReconcileAutoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "auto",
		Short: "Apply high-confidence suggested matches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			applied, err := e.reconService().AutoReconcile(cmd.Context(), e.cfg.Business.ID)
			if err != nil {
				return err
			}
			fmt.Printf("reconciled %d transaction(s)\n", applied)
			return nil
		},
	}
}

func newReconcileManualCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "manual <transaction-id> <document-id>",
		Short: "Manually match a transaction to a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			return e.reconService().ManualMatch(cmd.Context(), reconScope(cmd, e), args[0], args[1])
		},
	}
}

func newReconcileUnmatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unmatch <transaction-id>",
		Short: "Undo a match and return the transaction to unmatched",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			return e.reconService().Unmatch(cmd.Context(), reconScope(cmd, e), args[0])
		},
	}
}

func newReconcileExcludeCommand() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "exclude <transaction-id>",
		Short: "Mark a transaction as non-reconcilable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			return e.reconService().Exclude(cmd.Context(), reconScope(cmd, e), args[0], notes)
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "why the transaction is excluded")
	return cmd
}
