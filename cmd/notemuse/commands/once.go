package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/notemuse/internal/output"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single cycle",
	Long: `Run one cycle and exit. With --dry-run the idea is printed instead of
posted, and no Discord settings are needed.

Examples:
  notemuse once --dry-run
  notemuse once --dry-run --format json --thinking`,
	Args: cobra.NoArgs,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(onceCmd)

	flags := onceCmd.Flags()
	flags.Bool("dry-run", false, "print the idea instead of posting it")
	flags.Int("notes", 0, "notes per cycle (default 5)")
	flags.String("format", "text", "report format: text, json, jsonl, yaml")
	flags.Bool("thinking", false, "include the model's reasoning in text output")

	_ = viper.BindPFlag("notes_count", flags.Lookup("notes"))
}

func runOnce(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	thinking, _ := cmd.Flags().GetBool("thinking")
	formatStr, _ := cmd.Flags().GetString("format")

	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(!dryRun)
	if err != nil {
		return err
	}
	c, err := buildBot(cfg, dryRun)
	if err != nil {
		return err
	}

	if c.discord != nil {
		if err := c.discord.Open(); err != nil {
			return err
		}
		defer func() { _ = c.discord.Close() }()
	}

	res, err := c.bot.RunCycle(cmd.Context())
	if err != nil {
		return err
	}

	w, err := output.NewWriter(cmd.OutOrStdout(), format, output.WithThinking(thinking))
	if err != nil {
		return err
	}
	if err := w.Write(res); err != nil {
		return err
	}
	return w.Close()
}
