package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// StdinInput names standard input in an input list.
const StdinInput = "-"

// DiscoverInputs expands paths into the list of log files to read.
//
// Files are taken as given whatever their extension. Directories are walked
// recursively and contribute the files whose extension is in exts (case
// insensitive, sorted by path); hidden entries are skipped. "-" stands for
// stdin and no paths means stdin alone. Duplicates keep their first
// position.
func DiscoverInputs(paths []string, exts []string) ([]string, error) {
	if len(paths) == 0 {
		return []string{StdinInput}, nil
	}

	seen := make(map[string]bool)
	var inputs []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			inputs = append(inputs, p)
		}
	}

	for _, p := range paths {
		if p == StdinInput {
			add(p)
			continue
		}

		info, err := os.Stat(p)
		if err != nil {
			return nil, NewCommandError("discover", fmt.Errorf("input %q: %w", p, err))
		}
		if !info.IsDir() {
			add(p)
			continue
		}

		files, err := walkLogs(p, exts)
		if err != nil {
			return nil, NewCommandError("discover", err)
		}
		for _, f := range files {
			add(f)
		}
	}

	return inputs, nil
}

func walkLogs(root string, exts []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && matchExtension(path, exts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %q: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func matchExtension(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if ext == e {
			return true
		}
	}
	return false
}
