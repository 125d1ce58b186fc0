package main

import (
	"fmt"

	"github.com/newthinker/nurexia/internal/sysinfo"
	"github.com/spf13/cobra"
)

var systemInfoFormat string

var systemInfoCmd = &cobra.Command{
	Use:   "system-info",
	Short: "Display system information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := sysinfo.Render(sysinfo.Collect(Version), systemInfoFormat)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(systemInfoCmd)
	systemInfoCmd.Flags().StringVarP(&systemInfoFormat, "format", "f", "text", "output format: text or json")
}
