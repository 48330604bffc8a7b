package config

import (
	"fmt"
	"strings"

	"github.com/example/cfugen/internal/kernel"
	"github.com/example/cfugen/internal/widen"
	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Gen       GenConfig   `mapstructure:"gen"`
	Widen     WidenConfig `mapstructure:"widen"`
	LogLevel  string      `mapstructure:"log_level"`
	LogFormat string      `mapstructure:"log_format"`
}

type GenConfig struct {
	Precisions   []int    `mapstructure:"precisions"`
	Widths       []int    `mapstructure:"widths"`
	MinInnerLoop int      `mapstructure:"min_inner_loop"`
	Families     []string `mapstructure:"families"`
	OutDir       string   `mapstructure:"out_dir"`
	Header       string   `mapstructure:"header"`
	Workers      int      `mapstructure:"workers"`
}

type WidenConfig struct {
	Table []widen.Replacement `mapstructure:"table"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	params := kernel.DefaultParams()
	return Config{
		Gen: GenConfig{
			Precisions:   lo.Map(params.Precisions, func(p kernel.Precision, _ int) int { return int(p) }),
			Widths:       lo.Map(params.Widths, func(w kernel.VectorWidth, _ int) int { return int(w) }),
			MinInnerLoop: int(params.MinInnerLoop),
			Families:     lo.Map(kernel.Families(), func(f kernel.Family, _ int) string { return string(f) }),
			OutDir:       ".",
			Header:       "custom_asm.h",
			Workers:      0,
		},
		Widen: WidenConfig{
			Table: widen.DefaultTable(),
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.IntSlice("gen-precisions", defaults.Gen.Precisions, "Element precisions in bits")
	fs.IntSlice("gen-widths", defaults.Gen.Widths, "VPU vector register widths in bits")
	fs.Int("gen-min-inner-loop", defaults.Gen.MinInnerLoop, "Minimum elements per inner-loop iteration")
	fs.StringSlice("gen-families", defaults.Gen.Families, "Kernel families (symmetric|asymmetric|dotp)")
	fs.String("gen-out-dir", defaults.Gen.OutDir, "Root directory for v{width}/ kernel folders")
	fs.String("gen-header", defaults.Gen.Header, "Coprocessor macro header included by every kernel")
	fs.Int("gen-workers", defaults.Gen.Workers, "Concurrent generation workers (0 = GOMAXPROCS)")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("log-format", defaults.LogFormat, "Log format (json|text)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if err := bindFlags(v, opts.Cmd); err != nil {
		return Config{}, err
	}

	v.SetEnvPrefix("CFUGEN")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("cfugen")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("gen.precisions", c.Gen.Precisions)
	v.SetDefault("gen.widths", c.Gen.Widths)
	v.SetDefault("gen.min_inner_loop", c.Gen.MinInnerLoop)
	v.SetDefault("gen.families", c.Gen.Families)
	v.SetDefault("gen.out_dir", c.Gen.OutDir)
	v.SetDefault("gen.header", c.Gen.Header)
	v.SetDefault("gen.workers", c.Gen.Workers)
	v.SetDefault("widen.table", tableDefault(c.Widen.Table))
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_format", c.LogFormat)
}

// tableDefault converts the table to the generic form viper reads from files,
// so a configured table replaces the default as a whole.
func tableDefault(t widen.Table) []map[string]any {
	return lo.Map(t, func(r widen.Replacement, _ int) map[string]any {
		return map[string]any{"old": r.Old, "new": r.New}
	})
}

// flagKeys maps config keys to the flags registered by RegisterFlags.
var flagKeys = map[string]string{
	"gen.precisions":     "gen-precisions",
	"gen.widths":         "gen-widths",
	"gen.min_inner_loop": "gen-min-inner-loop",
	"gen.families":       "gen-families",
	"gen.out_dir":        "gen-out-dir",
	"gen.header":         "gen-header",
	"gen.workers":        "gen-workers",
	"log_level":          "log-level",
	"log_format":         "log-format",
}

// bindFlags binds each config key to its flag so an explicitly set flag
// overrides env and file values. Flags missing from the set are skipped.
func bindFlags(v *viper.Viper, cmd flagBinder) error {
	if cmd == nil {
		return nil
	}
	fs := cmd.Flags()
	for key, name := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}
