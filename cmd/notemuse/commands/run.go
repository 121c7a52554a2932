package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/notemuse/internal/bot"
	"github.com/jmylchreest/notemuse/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Post an idea now and then on every interval",
	Long: `Connect to Discord, run a cycle immediately and then one per interval
until interrupted. By default the first failing cycle stops the bot; use
--keep-going to log failures and wait for the next tick instead.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.Duration("interval", 0, "time between cycles (default 10m)")
	flags.Int("notes", 0, "notes per cycle (default 5)")
	flags.Bool("keep-going", false, "keep running after a failed cycle")

	_ = viper.BindPFlag("interval", flags.Lookup("interval"))
	_ = viper.BindPFlag("notes_count", flags.Lookup("notes"))
	_ = viper.BindPFlag("keep_going", flags.Lookup("keep-going"))
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	c, err := buildBot(cfg, false)
	if err != nil {
		return err
	}

	if err := c.discord.Open(); err != nil {
		return err
	}
	defer func() {
		if err := c.discord.Close(); err != nil {
			logger.Warn("closing discord session", "error", err)
		}
	}()

	logger.Info("notemuse started", "interval", cfg.Interval, "keep_going", cfg.KeepGoing)
	s := &bot.Scheduler{
		Interval:  cfg.Interval,
		KeepGoing: cfg.KeepGoing,
		Cycle:     c.bot.Cycle,
	}
	return s.Run(ctx)
}
