package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/database"
)

var reportCmd = &cobra.Command{
	Use:   "report [runID]",
	Short: "Show a stored run report, or list recent runs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  showReport,
}

func init() {
	reportCmd.Flags().IntP("limit", "n", 10, "number of runs to list")
	rootCmd.AddCommand(reportCmd)
}

func showReport(cmd *cobra.Command, args []string) error {
	if agentConfig.Storage.DatabasePath == "" {
		return fmt.Errorf("storage.database_path is not configured")
	}

	db, err := database.New(agentConfig.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}
	defer db.Close()

	if len(args) == 0 {
		limit, _ := cmd.Flags().GetInt("limit")
		reports, err := db.ListReports(limit)
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Println("no stored runs")
			return nil
		}
		for _, r := range reports {
			fmt.Printf("%s  %-12s %-10s %d iterations  %s\n",
				r.Started.Format(time.RFC3339), r.FinalVerdict, r.FinalPhase, r.Iterations, r.RunID)
		}
		return nil
	}

	report, err := db.GetReport(args[0])
	if err != nil {
		return err
	}
	printSummary(report, report.Ended.Sub(report.Started))
	return nil
}
