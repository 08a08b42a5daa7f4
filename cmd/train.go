package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kozaktomas/rollcall/internal/enrollment"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a subject from its enrollment captures",
	Long: `Embed each student's captures, average them into one reference per student
and replace the subject's stored references.

Examples:
  rollcall train --subject 3
  rollcall train --subject 3 --mode faster_quality --json`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().Int64("subject", 0, "Subject ID to train (required)")
	trainCmd.Flags().String("mode", "", "Operating mode (defaults to RECOGNITION_MODE)")
	trainCmd.Flags().Bool("json", false, "Print the training report as JSON")
	_ = trainCmd.MarkFlagRequired("subject")
}

// barProgress renders training progress on the terminal.
type barProgress struct {
	bar *progressbar.ProgressBar
}

func (p *barProgress) Start(total int, message string) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(message),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("students"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

func (p *barProgress) Advance(current string, processed int, message string) {
	if p.bar == nil {
		return
	}
	if current == "" {
		p.bar.Describe(message)
	} else {
		p.bar.Describe(fmt.Sprintf("Training %s", current))
	}
	_ = p.bar.Set(processed)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	subjectID := mustGetInt64(cmd, "subject")
	mode := mustGetString(cmd, "mode")
	if mode == "" {
		mode = cfg.Recognition.Mode
	}
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var progress enrollment.Progress
	if !jsonOutput {
		progress = &barProgress{}
	}
	report, err := a.trainer.Train(ctx, subjectID, mode, progress)
	if err != nil && report == nil {
		return fmt.Errorf("training failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return encErr
		}
		return err
	}

	fmt.Println()
	fmt.Printf("Mode:      %s (%s, %s)\n", report.Mode, report.Model, report.Detector)
	fmt.Printf("Trained:   %d/%d students\n", report.TrainedCount, report.TotalCount)
	fmt.Printf("Images:    %d\n", report.ImagesProcessed)
	fmt.Printf("Duration:  %.1fs\n", report.Seconds)
	for _, roll := range report.Excluded {
		fmt.Printf("  excluded: %s\n", roll)
	}
	fmt.Println(report.Message)
	return err
}
