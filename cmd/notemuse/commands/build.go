package commands

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/jmylchreest/notemuse/internal/bot"
	"github.com/jmylchreest/notemuse/internal/config"
	"github.com/jmylchreest/notemuse/internal/logger"
	"github.com/jmylchreest/notemuse/pkg/fragment"
	"github.com/jmylchreest/notemuse/pkg/llm"
	"github.com/jmylchreest/notemuse/pkg/poster"
	"github.com/jmylchreest/notemuse/pkg/segment"
)

// loadConfig decodes and validates the merged configuration for a cycle.
func loadConfig(posting bool) (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateBot(posting); err != nil {
		return nil, err
	}
	return cfg, nil
}

// components is everything a cycle needs, built from the configuration.
type components struct {
	bot     *bot.Bot
	discord *poster.Discord // Nil on dry runs
}

func buildBot(cfg *config.Config, dryRun bool) (*components, error) {
	maxSize, err := cfg.GitHub.MaxFileSizeBytes()
	if err != nil {
		return nil, err
	}
	source, err := fragment.NewGitHub(fragment.GitHubOptions{
		Owner:       cfg.GitHub.Owner,
		Repo:        cfg.GitHub.Repo,
		Folder:      cfg.GitHub.Folder,
		Ref:         cfg.GitHub.Ref,
		Token:       cfg.GitHub.Token,
		MaxFileSize: maxSize,
		BaseURL:     cfg.GitHub.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(cfg.LLM.Provider, cfg.ProviderConfig())
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", cfg.LLM.Provider, err)
	}
	observed := llm.Observe(provider, llm.NewLogObserver(logger.Component("llm")))

	seg, err := segment.New(cfg.Segment.Options())
	if err != nil {
		return nil, err
	}

	c := &components{}
	opts := bot.Options{
		Source:       source,
		Provider:     observed,
		Segmenter:    seg,
		NotesCount:   cfg.NotesCount,
		CycleTimeout: cfg.CycleTimeout,
		DryRun:       dryRun,
	}
	if !dryRun {
		c.discord, err = poster.NewDiscord(cfg.Discord.Token, cfg.Discord.ChannelID)
		if err != nil {
			return nil, err
		}
		opts.Poster = c.discord
	}

	c.bot, err = bot.New(opts)
	if err != nil {
		return nil, err
	}

	logger.Debug("bot configured",
		"repo", cfg.GitHub.Owner+"/"+cfg.GitHub.Repo,
		"folder", cfg.GitHub.Folder,
		"provider", provider.Name(),
		"model", provider.Model(),
		"notes", cfg.NotesCount,
		"dry_run", dryRun)
	return c, nil
}
