package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/notemuse/internal/config"
	"github.com/jmylchreest/notemuse/internal/output"
	"github.com/jmylchreest/notemuse/pkg/segment"
)

var segmentCmd = &cobra.Command{
	Use:   "segment [file|-]",
	Short: "Segment a saved model response",
	Long: `Run the segmentation pipeline over a model response read from a file or
stdin and print the report: the strategy that matched, cleanup results, stage
statistics and the bounded final output.

Examples:
  notemuse segment response.txt
  cat response.txt | notemuse segment --format json
  notemuse segment response.txt --max-length 280 --thinking`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSegment,
}

func init() {
	rootCmd.AddCommand(segmentCmd)

	flags := segmentCmd.Flags()
	flags.String("format", "text", "report format: text, json, jsonl, yaml")
	flags.Int("max-length", 0, "final output budget in characters (default 500)")
	flags.Bool("thinking", false, "include the thinking segment in text output")

	_ = viper.BindPFlag("segment.max_length", flags.Lookup("max-length"))
}

func runSegment(cmd *cobra.Command, args []string) error {
	formatStr, _ := cmd.Flags().GetString("format")
	thinking, _ := cmd.Flags().GetBool("thinking")

	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	raw, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	s, err := segment.New(cfg.Segment.Options())
	if err != nil {
		return err
	}

	report, err := s.Process(raw)
	if err != nil {
		return err
	}

	w, err := output.NewWriter(cmd.OutOrStdout(), format, output.WithThinking(thinking))
	if err != nil {
		return err
	}
	if err := w.Write(report); err != nil {
		return err
	}
	return w.Close()
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(b), nil
}
