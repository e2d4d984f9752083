// Package patch rewrites line oriented project config files in place.
//
// Matching is a bare prefix test on each whitespace-trimmed line. It does not
// parse Gradle or properties syntax, so a key that merely shares the prefix
// ("versionCode" for prefix "version") is removed as well.
package patch

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/ciforge/internal/errors"
)

// FileStatus represents what a patch did to a file
type FileStatus string

const (
	FileStatusCreated  FileStatus = "created"
	FileStatusModified FileStatus = "modified"
)

// Result describes a single applied line patch
type Result struct {
	Path    string     `json:"path"`
	Status  FileStatus `json:"status"`
	Removed int        `json:"removed"`
	Added   bool       `json:"added"`
	// Lines is the line count of the written file
	Lines int `json:"lines"`
	// Diff is the unified diff of the change, "" when the file is unchanged
	Diff string `json:"diff,omitempty"`
}

// LinePatch replaces every line starting with Prefix by Replacement.
type LinePatch struct {
	Path   string
	Prefix string

	// Replacement is appended as the new last line. Empty means the matching
	// lines are only removed.
	Replacement string

	// CreateIfMissing creates the file holding only Replacement. When false a
	// missing file is a CONFIG-001 error.
	CreateIfMissing bool
}

// PatchLine applies a LinePatch built from its arguments.
func PatchLine(path, prefix, replacement string, createIfMissing bool) (*Result, error) {
	return LinePatch{
		Path:            path,
		Prefix:          prefix,
		Replacement:     replacement,
		CreateIfMissing: createIfMissing,
	}.Apply()
}

// Apply reads the whole file, filters it and rewrites it.
func (p LinePatch) Apply() (*Result, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.NewConfigIOError(p.Path, err)
		}
		if !p.CreateIfMissing {
			return nil, errors.NewConfigNotFoundError(p.Path)
		}
		return p.create()
	}

	lines, removed := Filter(string(data), p.Prefix)
	added := p.Replacement != ""
	if added {
		lines = append(lines, p.Replacement)
	}

	content := Join(lines)
	if err := writeFile(p.Path, content, modeOf(p.Path)); err != nil {
		return nil, err
	}

	return &Result{
		Path:    p.Path,
		Status:  FileStatusModified,
		Removed: removed,
		Added:   added,
		Lines:   len(lines),
		Diff:    UnifiedDiff(filepath.Base(p.Path), string(data), string(content)),
	}, nil
}

func (p LinePatch) create() (*Result, error) {
	var content []byte
	if p.Replacement != "" {
		content = []byte(p.Replacement + "\n")
	}
	if err := writeFile(p.Path, content, 0644); err != nil {
		return nil, err
	}
	return &Result{
		Path:   p.Path,
		Status: FileStatusCreated,
		Added:  p.Replacement != "",
		Lines:  countLines(string(content)),
		Diff:   UnifiedDiff(filepath.Base(p.Path), "", string(content)),
	}, nil
}

// Filter normalizes line endings to LF, splits text into lines and drops the
// lines whose trimmed content starts with prefix. Trailing blank lines are
// dropped too so that a following append lands directly after the content.
func Filter(text, prefix string) (lines []string, removed int) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), prefix) {
			removed++
			continue
		}
		lines = append(lines, line)
	}

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, removed
}

// Join renders lines as LF separated text ending in a single LF.
// No lines render as an empty file.
func Join(lines []string) []byte {
	if len(lines) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func modeOf(path string) os.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return 0644
}

func writeFile(path string, content []byte, mode os.FileMode) error {
	if err := os.WriteFile(path, content, mode); err != nil {
		return errors.NewConfigIOError(path, err)
	}
	return nil
}
