package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/example/cfugen/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "cfugen-tools",
		Short: "Post-processing tools for generated CFU kernels",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}

			activeCfg = loaded
			slog.SetDefault(config.NewLogger(os.Stderr, loaded.LogLevel, loaded.LogFormat))

			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newWidenCmd())

	return cmd
}

func requireConfig() (config.Config, error) {
	if activeCfg.Gen.OutDir == "" {
		return config.Config{}, errors.New("configuration not loaded")
	}

	return activeCfg, nil
}
