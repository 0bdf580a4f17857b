package file

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPattern selects the files of a source directory when none is
// configured.
const DefaultPattern = "*.csv"

// ListDir returns the regular files of dir whose base name matches pattern
// (filepath.Match syntax; empty means DefaultPattern), sorted by name.
// Subdirectories are not descended into. A missing directory yields an
// error matching os.ErrNotExist.
func ListDir(dir, pattern string) ([]*Local, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("list %s: pattern %q: %w", dir, pattern, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ok, _ := filepath.Match(pattern, e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]*Local, len(names))
	for i, n := range names {
		out[i] = NewLocal(filepath.Join(dir, n))
	}
	return out, nil
}

// ReadList reads a text file and returns its non-empty lines that do not
// start with '#', trimmed, in file order.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read list %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read list %s: %w", path, err)
	}
	return out, nil
}
