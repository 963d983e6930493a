package main

import (
	"github.com/spf13/cobra"
)

var ensureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the workbook or add missing sheets and headers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		changed, err := st.EnsureSchema(ctx)
		if err != nil {
			return err
		}
		if changed {
			cmd.Printf("schema updated: %s\n", st.Location())
		} else {
			cmd.Printf("schema already complete: %s\n", st.Location())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ensureCmd)
}
