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
		Use:   "cfugen",
		Short: "Generate CFU/VPU assembly kernels for dot product and vector x matrix",
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
			setupLogger(loaded.LogLevel, loaded.LogFormat)
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newBenchCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(level, format string) {
	slog.SetDefault(config.NewLogger(os.Stderr, level, format))
}

func requireConfig() (config.Config, error) {
	if activeCfg.Gen.MinInnerLoop == 0 || activeCfg.Gen.Header == "" {
		return config.Config{}, errors.New("configuration not loaded")
	}
	return activeCfg, nil
}
