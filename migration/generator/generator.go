package generator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultPattern selects the schema definition files of a definitions directory.
const DefaultPattern = "*.sql"

// FSDefinitionSource reads the desired schema from the definition files of a
// filesystem. Every file whose base name matches Pattern is read, in the lexical
// order fs.WalkDir visits them, and the contents are joined with a newline.
type FSDefinitionSource struct {
	fsys    fs.FS
	pattern string
}

// NewFSDefinitionSource creates a definition source over fsys matching DefaultPattern
func NewFSDefinitionSource(fsys fs.FS) *FSDefinitionSource {
	return &FSDefinitionSource{
		fsys:    fsys,
		pattern: DefaultPattern,
	}
}

// WithPattern returns a copy of the source matching file base names against pattern
// (path.Match syntax) instead of DefaultPattern.
func (s *FSDefinitionSource) WithPattern(pattern string) *FSDefinitionSource {
	tmp := *s
	tmp.pattern = pattern
	return &tmp
}

// Files lists the matching definition files in reading order.
func (s *FSDefinitionSource) Files() ([]string, error) {
	var files []string
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		matched, err := path.Match(s.pattern, d.Name())
		if err != nil {
			return fmt.Errorf("invalid definition file pattern %q: %w", s.pattern, err)
		}
		if matched {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan definition files: %w", err)
	}

	return files, nil
}

// Definitions implements types.DefinitionSource.
func (s *FSDefinitionSource) Definitions(ctx context.Context) (string, error) {
	files, err := s.Files()
	if err != nil {
		return "", err
	}

	fragments := make([]string, 0, len(files))
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		data, err := fs.ReadFile(s.fsys, name)
		if err != nil {
			return "", fmt.Errorf("failed to read definition file %s: %w", name, err)
		}
		fragments = append(fragments, string(data))
	}

	return strings.Join(fragments, "\n"), nil
}

// IOError reports a dump file that cannot be written.
type IOError struct {
	Path   string
	Reason string
	Err    error
}

func (e *IOError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s", e.Path, e.Reason)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// WriteDumpFile writes a reconciliation report to filePath and returns the message
// replacing the report on the console. The parent directory has to exist already
// and an existing file is overwritten only when it is writable.
func WriteDumpFile(filePath, content string) (string, error) {
	dir := filepath.Dir(filePath)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", &IOError{Path: dir, Reason: "directory does not exist or is not readable", Err: err}
	}

	if _, err := os.Stat(filePath); err == nil {
		f, err := os.OpenFile(filePath, os.O_WRONLY, 0)
		if err != nil {
			return "", &IOError{Path: filePath, Reason: "file is not writable", Err: err}
		}
		f.Close()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", &IOError{Path: filePath, Reason: "file cannot be accessed", Err: err}
	}

	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil { //nolint:gosec // 0644 is fine
		return "", &IOError{Path: filePath, Reason: "failed to write dump file", Err: err}
	}

	return fmt.Sprintf("Output written to %s\n", filePath), nil
}
