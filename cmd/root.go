package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global output flags only
	verbose bool

	// dbPath points at the JSON export of a disk group's record database.
	dbPath string

	// diskFlags maps member disks to their image files, as id=path pairs.
	diskFlags []string
)

var rootCmd = &cobra.Command{
	Use:   "diskstream",
	Short: "Inspect dynamic disk groups and their logical volumes",
	Long: `diskstream assembles logical volumes from a dynamic disk group's
record database and the raw images of its member disks, and reports
per-volume health without mounting anything.

Commands:
  volumes     List logical volumes with their current status
  dump        Print the full group/disk/volume/component/extent hierarchy`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the disk group record database (JSON)")
	rootCmd.PersistentFlags().StringArrayVar(&diskFlags, "disk", nil, "member disk as id=path, repeatable")

	rootCmd.AddCommand(volumesCmd, dumpCmd)
}
