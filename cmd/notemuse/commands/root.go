// Package commands implements the CLI commands for notemuse.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/notemuse/internal/config"
	"github.com/jmylchreest/notemuse/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "notemuse",
	Short: "Turn random notes into story ideas and post them to Discord",
	Long: `notemuse picks random notes from a GitHub-hosted vault, asks a model to
combine them into a short story idea and posts the idea to a Discord channel.

Settings come from flags, NOTEMUSE_* environment variables (plus GITHUB_TOKEN,
GEMINI_API_KEY, DISCORD_BOT_TOKEN, DISCORD_CHANNEL_ID, OBSIDIAN_REPO_OWNER,
OBSIDIAN_REPO_NAME and TARGET_FOLDER), .notemuse.yaml and defaults.

Examples:
  # Post an idea every 10 minutes
  notemuse run

  # Try one cycle without posting
  notemuse once --dry-run

  # Inspect how a saved model response is segmented
  notemuse segment response.txt --format yaml`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// configErr holds a config file error until a command runs.
var configErr error

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default ./.notemuse.yaml or $HOME/.notemuse.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func initConfig() {
	v := viper.GetViper()
	config.SetDefaults(v)
	config.BindEnv(v)
	configErr = config.ReadFile(v, viper.GetString("config"))
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("log_json"),
	})
	if configErr != nil {
		return configErr
	}
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("config file loaded", "path", used)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logError("%v", err)
	}
	return err
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
