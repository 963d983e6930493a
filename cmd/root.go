package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/extrememax/expo-feria/internal/config"
)

var cfg *config.Config

// Overrides applied on top of config.yaml, .env and EXPO_* variables.
var (
	flagWorkbookDir string
	flagDriver      string
	flagLogLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "expo-feria",
	Short: "Trade-fair visitor intake backed by a spreadsheet",
	Long:  "Registers mechanics, distributors and consumers at the fair, hands out visitor codes, and keeps scores and prizes in one Excel workbook.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyFlagOverrides(c)
		cfg = c

		return eris.Wrap(config.InitLogger(cfg.Log), "init logger")
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// applyFlagOverrides copies the non-empty persistent flags into c.
func applyFlagOverrides(c *config.Config) {
	if flagWorkbookDir != "" {
		c.Workbook.Dir = flagWorkbookDir
	}
	if flagDriver != "" {
		c.Store.Driver = flagDriver
	}
	if flagLogLevel != "" {
		c.Log.Level = flagLogLevel
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagWorkbookDir, "workbook-dir", "", "folder holding the intake workbook (default workbook.dir, EXCEL_DIR)")
	pf.StringVar(&flagDriver, "driver", "", "row store: xlsx, sqlite or postgres (default store.driver)")
	pf.StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (default log.level)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
