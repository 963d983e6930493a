package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/extrememax/expo-feria/internal/importer"
)

var (
	importSheet     string
	importDelimiter string
)

var importLocationsCmd = &cobra.Command{
	Use:   "import-locations <file>",
	Short: "Load provinces, cantons and parishes from an .xlsx or .csv file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		opts := importer.ReadOptions{SheetName: importSheet}
		if importDelimiter != "" {
			r := []rune(importDelimiter)
			if len(r) != 1 {
				return eris.Errorf("delimiter must be a single character, got %q", importDelimiter)
			}
			opts.Delimiter = r[0]
		}

		env, err := initApp(ctx, cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := importer.Locations(ctx, env.Store, args[0], opts)
		if err != nil {
			return eris.Wrap(err, "import locations")
		}

		cmd.Printf("imported %d rows (%d skipped) into %s\n", res.Rows, res.Skipped, res.Location)
		if res.Fallback {
			cmd.Println("workbook was locked: rows were saved to the copy above")
		}
		return nil
	},
}

func init() {
	importLocationsCmd.Flags().StringVar(&importSheet, "sheet", "", "sheet to read from an .xlsx file (default PROVINCIA, then the first sheet)")
	importLocationsCmd.Flags().StringVar(&importDelimiter, "delimiter", "", "field delimiter for .csv files (default ,)")
	rootCmd.AddCommand(importLocationsCmd)
}
