package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/cfugen/internal/testutil"
)

func TestNewRootCmd_Use(t *testing.T) {
	cmd := NewRootCmd()
	if cmd.Use != "cfugen-tools" {
		t.Errorf("Use = %q; want %q", cmd.Use, "cfugen-tools")
	}
}

func TestNewRootCmd_HasWidenSubcommand(t *testing.T) {
	cmd := NewRootCmd()

	found := false
	for _, sub := range cmd.Commands() {
		if sub.Name() == "widen" {
			found = true
		}
	}

	if !found {
		t.Error("subcommand \"widen\" not registered")
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))

	err := cmd.Execute()

	return out.String(), err
}

func writeKernel(t *testing.T, dir, name, body string) string {
	t.Helper()

	return testutil.WriteFile(t, dir, "v64/"+name, body)
}

func TestWidenCmd_PatchesDirectory(t *testing.T) {
	dir := t.TempDir()
	a := writeKernel(t, dir, "a.S", "    addi t1, t1, 32\n")
	writeKernel(t, dir, "b.S", "    ret\n")

	out, err := run(t, "widen", dir)
	if err != nil {
		t.Fatalf("widen: %v", err)
	}

	if !strings.Contains(out, "Widened "+a) || !strings.Contains(out, "1 of 2 files changed") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if data := testutil.ReadFile(t, a); data != "    addi t1, t1, 64\n" {
		t.Errorf("a.S = %q", data)
	}

	out, err = run(t, "widen", dir)
	if err != nil {
		t.Fatalf("second widen: %v", err)
	}

	if !strings.Contains(out, "0 of 2 files changed") {
		t.Errorf("second pass changed files:\n%s", out)
	}
}

func TestWidenCmd_DryRunLeavesFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeKernel(t, dir, "a.S", "    lw t2, 0(a5)\n")

	out, err := run(t, "widen", "--dry-run", a)
	if err != nil {
		t.Fatalf("widen --dry-run: %v", err)
	}

	if !strings.Contains(out, "Would widen "+a) {
		t.Errorf("unexpected output:\n%s", out)
	}

	if data := testutil.ReadFile(t, a); data != "    lw t2, 0(a5)\n" {
		t.Errorf("dry run modified file: %q", data)
	}
}

func TestWidenCmd_ConfiguredTable(t *testing.T) {
	dir := t.TempDir()
	a := writeKernel(t, dir, "a.S", "    vpu_LOAD(a5, v0)\n")

	cfgPath := filepath.Join(t.TempDir(), "tools.yaml")
	cfg := "widen:\n  table:\n    - old: vpu_LOAD\n      new: vpu_LOAD64\n"

	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "widen", "--config", cfgPath, dir); err == nil {
		t.Fatal("expected table validation error for self-containing replacement")
	}

	cfg = "widen:\n  table:\n    - old: vpu_LOAD(\n      new: vpu_LD64(\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "widen", "--config", cfgPath, dir); err != nil {
		t.Fatalf("widen: %v", err)
	}

	if data := testutil.ReadFile(t, a); data != "    vpu_LD64(a5, v0)\n" {
		t.Errorf("a.S = %q", data)
	}
}

func TestWidenCmd_MissingPath(t *testing.T) {
	if _, err := run(t, "widen", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing path")
	}
}
