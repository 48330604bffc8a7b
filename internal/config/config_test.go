package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/example/cfugen/internal/kernel"
	"github.com/example/cfugen/internal/widen"
	"github.com/spf13/pflag"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

// newFlagBinder creates a FlagSet with all config flags registered at their defaults.
func newFlagBinder(defaults Config) *fakeBinder {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	return &fakeBinder{fs: fs}
}

// --- DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !reflect.DeepEqual(cfg.Gen.Precisions, []int{8, 4, 2, 1}) {
		t.Errorf("Gen.Precisions = %v; want [8 4 2 1]", cfg.Gen.Precisions)
	}

	if !reflect.DeepEqual(cfg.Gen.Widths, []int{64, 128, 256, 512}) {
		t.Errorf("Gen.Widths = %v; want [64 128 256 512]", cfg.Gen.Widths)
	}

	if cfg.Gen.MinInnerLoop != 32 {
		t.Errorf("Gen.MinInnerLoop = %d; want 32", cfg.Gen.MinInnerLoop)
	}

	if !reflect.DeepEqual(cfg.Gen.Families, []string{"symmetric", "asymmetric", "dotp"}) {
		t.Errorf("Gen.Families = %v", cfg.Gen.Families)
	}

	if cfg.Gen.Header != "custom_asm.h" {
		t.Errorf("Gen.Header = %q; want %q", cfg.Gen.Header, "custom_asm.h")
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "info")
	}

	if len(cfg.Widen.Table) != len(widen.DefaultTable()) {
		t.Errorf("Widen.Table has %d entries; want %d", len(cfg.Widen.Table), len(widen.DefaultTable()))
	}
}

func TestGenConfigParams(t *testing.T) {
	p := DefaultConfig().Gen.Params()
	if !reflect.DeepEqual(p, kernel.DefaultParams()) {
		t.Errorf("Params() = %+v; want %+v", p, kernel.DefaultParams())
	}
}

func TestGenConfigKernelFamilies(t *testing.T) {
	g := GenConfig{Families: []string{"dotp", "nxn", "symmetric"}}
	got, err := g.KernelFamilies()
	if err != nil {
		t.Fatalf("KernelFamilies() error = %v", err)
	}
	want := []kernel.Family{kernel.DotProduct, kernel.MatrixSymmetric}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("KernelFamilies() = %v; want %v", got, want)
	}

	all, err := GenConfig{}.KernelFamilies()
	if err != nil || len(all) != 3 {
		t.Errorf("empty KernelFamilies() = %v, %v; want all three", all, err)
	}

	if _, err := (GenConfig{Families: []string{"conv"}}).KernelFamilies(); err == nil {
		t.Error("KernelFamilies() = nil error for unknown family")
	}
}

// --- RegisterFlags ---

func TestRegisterFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, DefaultConfig())

	checks := []struct {
		flag string
		want string
	}{
		{"gen-precisions", "[8,4,2,1]"},
		{"gen-widths", "[64,128,256,512]"},
		{"gen-min-inner-loop", "32"},
		{"gen-families", "[symmetric,asymmetric,dotp]"},
		{"gen-out-dir", "."},
		{"gen-header", "custom_asm.h"},
		{"gen-workers", "0"},
		{"log-level", "info"},
		{"log-format", "json"},
	}

	for _, c := range checks {
		f := fs.Lookup(c.flag)
		if f == nil {
			t.Errorf("flag %q not registered", c.flag)
			continue
		}

		if f.DefValue != c.want {
			t.Errorf("flag %q default = %q; want %q", c.flag, f.DefValue, c.want)
		}
	}
}

// --- Load ---

func TestLoad_Defaults(t *testing.T) {
	defaults := DefaultConfig()
	binder := newFlagBinder(defaults)

	cfg, err := Load(LoadOptions{
		Cmd:      binder,
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !reflect.DeepEqual(cfg.Gen, defaults.Gen) {
		t.Errorf("Gen = %+v; want %+v", cfg.Gen, defaults.Gen)
	}

	if !reflect.DeepEqual(cfg.Widen.Table, defaults.Widen.Table) {
		t.Errorf("Widen.Table = %v; want %v", cfg.Widen.Table, defaults.Widen.Table)
	}

	if cfg.LogLevel != defaults.LogLevel {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, defaults.LogLevel)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	err := fs.Parse([]string{
		"--gen-precisions=4,2",
		"--gen-widths=128",
		"--gen-out-dir=out",
		"--gen-workers=3",
		"--log-level=debug",
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := Load(LoadOptions{
		Cmd:      &fakeBinder{fs: fs},
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !reflect.DeepEqual(cfg.Gen.Precisions, []int{4, 2}) {
		t.Errorf("Gen.Precisions = %v; want [4 2]", cfg.Gen.Precisions)
	}

	if !reflect.DeepEqual(cfg.Gen.Widths, []int{128}) {
		t.Errorf("Gen.Widths = %v; want [128]", cfg.Gen.Widths)
	}

	if cfg.Gen.OutDir != "out" {
		t.Errorf("Gen.OutDir = %q; want %q", cfg.Gen.OutDir, "out")
	}

	if cfg.Gen.Workers != 3 {
		t.Errorf("Gen.Workers = %d; want 3", cfg.Gen.Workers)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "debug")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CFUGEN_LOG_LEVEL", "warn")
	t.Setenv("CFUGEN_GEN_MIN_INNER_LOOP", "64")
	t.Setenv("CFUGEN_GEN_HEADER", "vpu.h")

	defaults := DefaultConfig()
	cfg, err := Load(LoadOptions{
		Cmd:      newFlagBinder(defaults),
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "warn")
	}

	if cfg.Gen.MinInnerLoop != 64 {
		t.Errorf("Gen.MinInnerLoop = %d; want 64", cfg.Gen.MinInnerLoop)
	}

	if cfg.Gen.Header != "vpu.h" {
		t.Errorf("Gen.Header = %q; want %q", cfg.Gen.Header, "vpu.h")
	}
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	t.Setenv("CFUGEN_GEN_HEADER", "env.h")

	defaults := DefaultConfig()
	binder := newFlagBinder(defaults)
	if err := binder.fs.Parse([]string{"--gen-header=flag.h"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := Load(LoadOptions{Cmd: binder, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Gen.Header != "flag.h" {
		t.Errorf("Gen.Header = %q; want %q", cfg.Gen.Header, "flag.h")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "cfugen.yaml")

	content := `
gen:
  precisions: [8, 2]
  widths: [256]
  families: [asymmetric]
  out_dir: build/kernels
widen:
  table:
    - old: "addi t1, t1, 32"
      new: "addi t1, t1, 64"
log_level: error
`

	err := os.WriteFile(cfgFile, []byte(content), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	defaults := DefaultConfig()
	cfg, err := Load(LoadOptions{
		Cmd:        newFlagBinder(defaults),
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !reflect.DeepEqual(cfg.Gen.Precisions, []int{8, 2}) {
		t.Errorf("Gen.Precisions = %v; want [8 2]", cfg.Gen.Precisions)
	}

	if !reflect.DeepEqual(cfg.Gen.Widths, []int{256}) {
		t.Errorf("Gen.Widths = %v; want [256]", cfg.Gen.Widths)
	}

	if !reflect.DeepEqual(cfg.Gen.Families, []string{"asymmetric"}) {
		t.Errorf("Gen.Families = %v; want [asymmetric]", cfg.Gen.Families)
	}

	if cfg.Gen.OutDir != "build/kernels" {
		t.Errorf("Gen.OutDir = %q; want %q", cfg.Gen.OutDir, "build/kernels")
	}

	if cfg.Gen.MinInnerLoop != 32 {
		t.Errorf("Gen.MinInnerLoop = %d; want default 32", cfg.Gen.MinInnerLoop)
	}

	want := []widen.Replacement{{Old: "addi t1, t1, 32", New: "addi t1, t1, 64"}}
	if !reflect.DeepEqual(cfg.Widen.Table, want) {
		t.Errorf("Widen.Table = %v; want %v", cfg.Widen.Table, want)
	}

	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "error")
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "bad.yaml")

	err := os.WriteFile(cfgFile, []byte(":\t:bad yaml:::"), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err = Load(LoadOptions{
		ConfigFile: cfgFile,
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for invalid config file")
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigFile: filepath.Join(t.TempDir(), "nope.yaml"),
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for missing explicit config file")
	}
}

// --- logging ---

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v; wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "warn", "json").Info("hidden")
	NewLogger(&buf, "warn", "json").Warn("shown", "k", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("json output missing record: %s", out)
	}

	buf.Reset()
	NewLogger(&buf, "info", "text").Info("plain")
	if !strings.Contains(buf.String(), "msg=plain") {
		t.Errorf("text output = %q", buf.String())
	}
}
