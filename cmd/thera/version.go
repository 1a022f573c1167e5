package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  "Display the Thera version and the OpenCV and GoCV versions it was built against.",
	Example: `  # Display version information
  thera version`,
	RunE: runVersion,
}

func runVersion(cmd *cobra.Command, args []string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\nOpenCV: %s\nGoCV: %s\n", AppName, AppVersion, gocv.OpenCVVersion(), gocv.Version())
	return nil
}
