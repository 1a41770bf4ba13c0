package storage

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nemanja-m/gomandel/internal/scheduler/core"
)

// FindViewFiles expands glob patterns (with ** support) into a sorted,
// de-duplicated list of regular files. Symlinks and directories are skipped.
func FindViewFiles(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, name := range matches {
			info, err := os.Lstat(name)
			if err != nil {
				continue
			}
			if !info.Mode().IsRegular() {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			files = append(files, name)
		}
	}
	slices.Sort(files)
	return files, nil
}

// ReadViewFile reads a view hash from path. The first line that is neither
// blank nor a '//' or ';' comment must hold the hash.
func ReadViewFile(path string) (core.ViewState, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.ViewState{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, ";") {
			continue
		}
		state, err := core.ParseViewHash(line)
		if err != nil {
			return core.ViewState{}, fmt.Errorf("%s: %w", path, err)
		}
		return state, nil
	}
	if err := scanner.Err(); err != nil {
		return core.ViewState{}, fmt.Errorf("error reading %s: %w", path, err)
	}
	return core.ViewState{}, fmt.Errorf("%s: no view hash found: %w", path, core.ErrInvalidView)
}
