package commands

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/shopqa/internal/output"
	"github.com/jmylchreest/shopqa/pkg/model/registry"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models in the model index",
	Long: `List the question answering models in the index given by --model-index.
With --fetch, download and cache the vocab of the named model.

Examples:
  shopqa models --model-index models.yaml --tag squad
  shopqa models --model-index models.yaml --fetch distilbert-base-cased-distilled-squad`,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	flags := modelsCmd.Flags()
	flags.StringSlice("tag", nil, "only models with all of these tags")
	flags.String("fetch", "", "download the vocab for this model and print its path")
	flags.String("format", "text", "output format: json, jsonl, yaml, text")
}

func runModels(cmd *cobra.Command, args []string) error {
	initLogger(false)

	index := viper.GetString("model_index")
	if index == "" {
		return errors.New("--model-index is required")
	}
	reg, err := registry.NewFlatFile(index, viper.GetString("model_cache"))
	if err != nil {
		return err
	}

	if name, _ := cmd.Flags().GetString("fetch"); name != "" {
		path, err := reg.EnsureVocab(cmd.Context(), name)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
		return err
	}

	tags, _ := cmd.Flags().GetStringSlice("tag")
	models, err := reg.List(cmd.Context(), registry.WithTags(tags...))
	if err != nil {
		return err
	}

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	if format == output.FormatText {
		return writeModelTable(cmd, models)
	}

	w, err := output.NewWriter(cmd.OutOrStdout(), format)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	if format == output.FormatJSONL {
		for _, m := range models {
			if err := w.Write(m); err != nil {
				return err
			}
		}
		return nil
	}
	return w.Write(models)
}

func writeModelTable(cmd *cobra.Command, models []registry.ModelInfo) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSERVED AS\tMAX LEN\tCASED\tTAGS")
	for _, m := range models {
		maxLen := "-"
		if m.MaxSequenceLength > 0 {
			maxLen = fmt.Sprint(m.MaxSequenceLength)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", m.Name, m.Served(), maxLen, m.Cased, strings.Join(m.Tags, ","))
	}
	return tw.Flush()
}
