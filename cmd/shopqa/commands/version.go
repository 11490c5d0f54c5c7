package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/shopqa/internal/output"
	"github.com/jmylchreest/shopqa/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		formatStr, _ := cmd.Flags().GetString("format")
		format, err := output.ParseFormat(formatStr)
		if err != nil {
			return err
		}
		if format == output.FormatText {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			return err
		}
		w, err := output.NewWriter(cmd.OutOrStdout(), format)
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
		return w.Write(version.Get())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().String("format", "text", "output format: json, jsonl, yaml, text")
}
