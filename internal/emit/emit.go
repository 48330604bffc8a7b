// Package emit writes rendered kernels below an output root.
package emit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/cfugen/internal/kernel"
)

// ErrWrite matches every *WriteError via errors.Is.
var ErrWrite = errors.New("kernel write failed")

// WriteError reports a failed kernel write together with its triple.
type WriteError struct {
	Tuple kernel.Tuple
	Path  string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("kernel %s: write %s: %v", e.Tuple, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == ErrWrite }

// Writer places kernels at Root/v{width}/{name}.S.
type Writer struct {
	Root string
}

// Write stores text for plan p and returns the written path. The file is
// written to a temporary sibling and renamed into place, so a failed write
// never leaves a partial kernel behind. Existing files are replaced.
func (w Writer) Write(p kernel.Plan, text []byte) (string, error) {
	outPath := filepath.Join(w.Root, filepath.FromSlash(p.Path()))
	if err := writeFile(outPath, text); err != nil {
		return "", &WriteError{Tuple: p.Tuple(), Path: outPath, Err: err}
	}
	return outPath, nil
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	return writeFile(path, data)
}

func writeFile(outPath string, data []byte) error {
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	fh, err := os.CreateTemp(dir, "."+filepath.Base(outPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := fh.Name()

	if _, err := fh.Write(data); err != nil {
		_ = fh.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := fh.Chmod(0o644); err != nil {
		_ = fh.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := fh.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("move temp file into place: %w", err)
	}
	return nil
}
