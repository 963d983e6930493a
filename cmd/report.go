package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/report"
)

var (
	reportView  string
	reportQuery string
	reportTop   int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the code and prize registries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		switch reportView {
		case "codes", "prizes", "both":
		default:
			return eris.Errorf("unknown view %q (want codes, prizes or both)", reportView)
		}

		env, err := initApp(ctx, cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		v, err := env.Reports.View(ctx)
		if err != nil {
			return eris.Wrap(err, "report")
		}

		out := cmd.OutOrStdout()
		if reportView != "prizes" {
			codes := report.FilterByQuery(v.Codes, reportQuery)
			if reportTop > 0 {
				codes = report.TopN(codes, reportTop)
			} else {
				codes = report.SortByScore(codes)
			}
			formatCodes(out, codes)
		}
		if reportView == "both" {
			_, _ = fmt.Fprintln(out)
		}
		if reportView != "codes" {
			formatPrizes(out, report.FilterByQuery(v.Prizes, reportQuery))
		}
		if reportView == "both" && reportQuery == "" {
			_, _ = fmt.Fprintln(out)
			formatSummary(out, report.Summarize(v))
		}
		return nil
	},
}

func formatCodes(out io.Writer, rows []model.CodeRow) {
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "No codes found.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CODIGO\tPUNTAJE\tDOCUMENTO\tNOMBRE\tTIPO\tSTAND")
	_, _ = fmt.Fprintln(w, "------\t-------\t---------\t------\t----\t-----")
	for _, r := range rows {
		score := ""
		if r.Score != 0 {
			score = fmt.Sprint(r.Score)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Code, score, r.Document, truncate(r.Name, 30), r.Type, r.Stand)
	}
	_ = w.Flush()
}

func formatPrizes(out io.Writer, rows []model.PrizeRow) {
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "No prizes found.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CODIGO\tPREMIO\tNOMBRE\tTIPO\tSTAND")
	_, _ = fmt.Fprintln(w, "------\t------\t------\t----\t-----")
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.Code, truncate(r.Prize, 30), truncate(r.Name, 30), r.Type, r.Stand)
	}
	_ = w.Flush()
}

func formatSummary(out io.Writer, s report.Summary) {
	_, _ = fmt.Fprintf(out, "Codes: %d (%d scored)  Prizes: %d\n", s.Codes, s.Scored, s.Prizes)
	if s.Scored > 0 {
		_, _ = fmt.Fprintf(out, "Score mean %.1f  median %.1f  max %.0f\n", s.Mean, s.Median, s.Max)
	}
	for _, label := range sortedLabels(s.ByType) {
		_, _ = fmt.Fprintf(out, "  %-14s %d\n", label, s.ByType[label])
	}
}

func sortedLabels(m map[string]int) []string {
	labels := make([]string, 0, len(m))
	for k := range m {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

func init() {
	reportCmd.Flags().StringVar(&reportView, "view", "both", "what to print: codes, prizes or both")
	reportCmd.Flags().StringVar(&reportQuery, "query", "", "accent-insensitive filter over code, document, name, phone and stand")
	reportCmd.Flags().IntVar(&reportTop, "top", 0, "only the N highest scores")
	rootCmd.AddCommand(reportCmd)
}
