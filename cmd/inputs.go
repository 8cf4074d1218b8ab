package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// stdinName stands for standard input in an argument list.
const stdinName = "-"

// expandInputs resolves file arguments and glob patterns in argument order.
// Matches of a single glob are sorted; repeated paths are dropped. No
// arguments means stdin.
func expandInputs(args []string) ([]string, error) {
	if len(args) == 0 {
		return []string{stdinName}, nil
	}

	var files []string
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, arg := range args {
		if arg == stdinName {
			add(arg)
			continue
		}
		if !strings.ContainsAny(arg, "*?[") {
			if _, err := os.Stat(arg); err != nil {
				return nil, err
			}
			add(arg)
			continue
		}

		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no matches for pattern %q", arg)
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(m)
		}
	}
	return files, nil
}
