// Package check lints generated kernel sources: the exported label exists,
// every branch lands on a label of the same file, and only registers of the
// documented calling contract are touched.
package check

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/example/cfugen/internal/asm"
)

// PassMark and FailMark are the prefix symbols printed for each file.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// Finding is one problem in a source file. Line is 1-based, 0 for
// whole-file findings.
type Finding struct {
	Line    int
	Message string
}

func (f Finding) String() string {
	if f.Line == 0 {
		return f.Message
	}
	return fmt.Sprintf("line %d: %s", f.Line, f.Message)
}

var (
	includeRE  = regexp.MustCompile(`^#include\s+"[^"]+"$`)
	globalRE   = regexp.MustCompile(`^\.global\s+([A-Za-z_][A-Za-z0-9_]*)$`)
	labelRE    = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*):$`)
	identRE    = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	registerRE = regexp.MustCompile(`^(x[0-9]+|zero|ra|sp|gp|tp|fp|t[0-6]|s[0-9]+|a[0-7]|v[0-9]+)$`)
)

var branches = map[string]bool{
	"beq": true, "bne": true, "blt": true, "bge": true,
	"bltu": true, "bgeu": true, "j": true, "jal": true,
}

type instruction struct {
	line     int
	mnemonic string
	operands []string
}

// Lint returns the findings for one kernel source.
func Lint(text string) []Finding {
	var (
		findings []Finding
		globals  []string
		labels   = make(map[string]int)
		insns    []instruction
		includes int
		configs  int
	)

	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := raw
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case includeRE.MatchString(line):
			includes++
		case globalRE.MatchString(line):
			globals = append(globals, globalRE.FindStringSubmatch(line)[1])
		case labelRE.MatchString(line):
			name := labelRE.FindStringSubmatch(line)[1]
			if prev, ok := labels[name]; ok {
				findings = append(findings, Finding{lineNo, fmt.Sprintf("label %q already defined on line %d", name, prev)})
				continue
			}
			labels[name] = lineNo
		default:
			insn := parseInstruction(lineNo, line)
			if insn.mnemonic == "vpu_CONFIG" {
				configs++
			}
			insns = append(insns, insn)
		}
	}

	if includes == 0 {
		findings = append(findings, Finding{0, "missing #include of the coprocessor macro header"})
	}
	if len(globals) == 0 {
		findings = append(findings, Finding{0, "no .global symbol"})
	}
	for _, g := range globals {
		if _, ok := labels[g]; !ok {
			findings = append(findings, Finding{0, fmt.Sprintf("global symbol %q has no label", g)})
		}
	}
	if configs != 1 {
		findings = append(findings, Finding{0, fmt.Sprintf("expected exactly one vpu_CONFIG, found %d", configs)})
	}

	for _, insn := range insns {
		if branches[insn.mnemonic] {
			if len(insn.operands) == 0 {
				findings = append(findings, Finding{insn.line, fmt.Sprintf("%s without target", insn.mnemonic)})
				continue
			}
			target := insn.operands[len(insn.operands)-1]
			if _, ok := labels[target]; !ok {
				findings = append(findings, Finding{insn.line, fmt.Sprintf("branch target %q is not defined", target)})
			}
		}
		for _, reg := range registersOf(insn) {
			if _, ok := asm.Contract[reg]; ok {
				continue
			}
			if asm.VectorRegisters[reg] {
				continue
			}
			findings = append(findings, Finding{insn.line, fmt.Sprintf("register %s is outside the calling contract", reg)})
		}
	}
	return findings
}

func parseInstruction(lineNo int, line string) instruction {
	var mnemonic, rest string
	if open := strings.Index(line, "("); open > 0 && strings.HasPrefix(line, "vpu_") {
		mnemonic = line[:open]
		rest = strings.TrimSuffix(line[open+1:], ")")
	} else {
		mnemonic, rest, _ = strings.Cut(line, " ")
	}

	var operands []string
	for _, op := range strings.Split(rest, ",") {
		if op = strings.TrimSpace(op); op != "" {
			operands = append(operands, op)
		}
	}
	return instruction{line: lineNo, mnemonic: strings.TrimSpace(mnemonic), operands: operands}
}

func registersOf(insn instruction) []asm.Register {
	var regs []asm.Register
	for _, op := range insn.operands {
		for _, id := range identRE.FindAllString(op, -1) {
			if registerRE.MatchString(id) {
				regs = append(regs, asm.Register(id))
			}
		}
	}
	return regs
}

// Result collects the outcome of a check run.
type Result struct {
	failures []string
}

// Failed returns true if any file failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// marks returns PassMark and FailMark styled for w. Writers that are not a
// color terminal get the plain symbols.
func marks(w io.Writer) (pass, fail string) {
	r := lipgloss.NewRenderer(w)
	pass = r.NewStyle().Foreground(lipgloss.Color("2")).Render(PassMark)
	fail = r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true).Render(FailMark)
	return pass, fail
}

// Run lints every file and writes one line per file to w, prefixed with
// PassMark or FailMark.
func Run(files []string, w io.Writer) Result {
	var res Result
	passMark, failMark := marks(w)
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			res.fail(fmt.Sprintf("%s: %v", path, err))
			fmt.Fprintf(w, "%s %s: %v\n", failMark, path, err)
			continue
		}

		findings := Lint(string(data))
		if len(findings) == 0 {
			fmt.Fprintf(w, "%s %s\n", passMark, path)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", failMark, path)
		for _, f := range findings {
			res.fail(fmt.Sprintf("%s: %s", path, f))
			fmt.Fprintf(w, "    %s\n", f)
		}
	}
	return res
}

// Collect returns the .S files below root in lexical order.
func Collect(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".S" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect kernels under %s: %w", root, err)
	}
	slices.Sort(files)
	return files, nil
}
