package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/enrollment"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show how ready a subject's captures are for training",
	Long: `Count the enrollment captures of every student in a subject and report how many
students have enough images for each operating mode. Does not need a database.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Int64("subject", 0, "Subject ID (required)")
	reportCmd.Flags().Bool("json", false, "Print the report as JSON")
	_ = reportCmd.MarkFlagRequired("subject")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	subjectID := mustGetInt64(cmd, "subject")

	source := enrollment.NewDirSource(cfg.Enrollment.UploadDir)
	report, err := enrollment.ReadinessReport(context.Background(), source, cfg.Modes, subjectID)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("Students:  %d\n", report.Students)
	fmt.Printf("Images:    avg %.1f, min %d, max %d\n", report.AvgImages, report.MinImages, report.MaxImages)
	for _, name := range cfg.Modes.Names() {
		mode, _ := cfg.Modes.Mode(name)
		fmt.Printf("  %-16s %d/%d ready (%d images each)\n", name, report.Ready[name], report.Students, mode.ImagesPerStudent)
	}
	fmt.Println(report.Recommendation)
	return nil
}
