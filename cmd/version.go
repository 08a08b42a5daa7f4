package cmd

import (
	"fmt"
	"runtime"

	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/kozaktomas/rollcall/cmd.Version=..." at build time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information and the bundled operating modes",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rollcall %s (%s, built %s, %s)\n", Version, CommitSHA, BuildDate, runtime.Version())

		modes := config.Load().Modes
		for _, name := range modes.Names() {
			m, err := modes.Mode(name)
			if err != nil {
				continue
			}
			fmt.Printf("  %-16s %2d images/student  recognize >= %.2f  low confidence >= %.2f  (%s/%s)\n",
				name, m.ImagesPerStudent, m.RecognitionThreshold, m.MinConfidence, m.ModelName, m.DetectorBackend)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
