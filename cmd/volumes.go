package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var volumesCmd = &cobra.Command{
	Use:   "volumes",
	Short: "List logical volumes with their current status",
	RunE: func(cmd *cobra.Command, args []string) error {
		group, opened, err := openGroup()
		defer closeAll(opened)
		if err != nil {
			return err
		}

		for _, v := range group.Volumes() {
			fmt.Printf("%-8d %-20s %-18s components=%d\n",
				v.Record.ID, v.Record.Name, v.Status, v.Record.ComponentCount)
		}
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the full group/disk/volume/component/extent hierarchy",
	RunE: func(cmd *cobra.Command, args []string) error {
		group, opened, err := openGroup()
		defer closeAll(opened)
		if err != nil {
			return err
		}
		return group.Dump(os.Stdout)
	},
}
