package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"notifyconf/internal/app"
	"notifyconf/internal/logging"
	"notifyconf/internal/settings"
	"notifyconf/internal/tags"
)

// rootOptions carries persistent flags and the app built from them.
type rootOptions struct {
	settingsFile string
	settingsDir  string
	configs      []string
	tags         []string

	app      *app.App
	logger   *slog.Logger
	closeLog func()
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "notifyconf",
		Short: "Load notification targets from config files and deliver messages",
		Long: `notifyconf reads lists of notification URLs from text or YAML config
sources (local files or http(s) URLs), filters them by tag and delivers
messages to the matching services.`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return opts.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.closeLog != nil {
				opts.closeLog()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.settingsFile, "settings-file", "", "path to one TOML settings file")
	flags.StringVar(&opts.settingsDir, "settings-dir", "", "path to directory with TOML settings fragments")
	flags.StringArrayVarP(&opts.configs, "config", "c", nil, "config source path or URL (repeatable)")
	flags.StringArrayVarP(&opts.tags, "tag", "g", nil, "tag filter; each flag is one OR clause, '+' joins AND tokens (repeatable)")

	rootCmd.AddCommand(
		newServicesCommand(opts),
		newNotifyCommand(opts),
		newValidateCommand(opts),
		newWatchCommand(opts),
	)
	return rootCmd
}

// setup loads settings, installs the logger, and builds the app.
func (o *rootOptions) setup() error {
	source, err := settings.FromCLI(o.settingsFile, o.settingsDir)
	if err != nil {
		return err
	}
	cfg, err := settings.Load(source)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if len(o.configs) > 0 {
		cfg.Sources.Paths = append([]string(nil), o.configs...)
		searchDefaults := false
		cfg.Sources.SearchDefaults = &searchDefaults
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	slog.SetDefault(logger)
	o.logger = logger
	o.closeLog = closeLog

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	o.app = a
	return nil
}

// expression joins every --tag value as an OR clause.
func (o *rootOptions) expression() tags.Expression {
	var expr tags.Expression
	for _, value := range o.tags {
		expr = append(expr, tags.Parse(value)...)
	}
	return expr
}
