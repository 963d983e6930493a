package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/extrememax/expo-feria/internal/report"
)

var exportCmd = &cobra.Command{
	Use:   "export <out.xlsx>",
	Short: "Write the code and prize registries to a new workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		v, err := env.Reports.View(ctx)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		f, err := os.Create(args[0])
		if err != nil {
			return eris.Wrap(err, "export: create file")
		}
		if err := report.WriteXLSX(f, v); err != nil {
			_ = f.Close()
			return eris.Wrap(err, "export")
		}
		if err := f.Close(); err != nil {
			return eris.Wrap(err, "export: close file")
		}

		zap.L().Info("export complete",
			zap.String("path", args[0]),
			zap.Int("codes", len(v.Codes)),
			zap.Int("prizes", len(v.Prizes)),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
