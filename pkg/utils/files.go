package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SourceExt is the extension of GB BASIC page files.
const SourceExt = ".bas"

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}
	parentDir = filepath.Dir(fullPath)
	return fullPath, parentDir, nil
}

// PageFiles expands inputs into page files. A directory contributes its
// .bas files in name order; a file is taken as given.
func PageFiles(inputs []string) ([]string, error) {
	var out []string
	for _, in := range inputs {
		full, _, err := GetPathInfo(in)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(full)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, full)
			continue
		}
		entries, err := os.ReadDir(full)
		if err != nil {
			return nil, err
		}
		var names []string
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), SourceExt) {
				names = append(names, e.Name())
			}
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("%s: no %s files", in, SourceExt)
		}
		sort.Strings(names)
		for _, n := range names {
			out = append(out, filepath.Join(full, n))
		}
	}
	return out, nil
}

// ReadPages reads every page file named by inputs.
func ReadPages(inputs []string) (paths []string, pages []string, err error) {
	paths, err = PageFiles(inputs)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, nil, err
		}
		pages = append(pages, string(data))
	}
	return paths, pages, nil
}

// WithExt replaces the extension of path.
func WithExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
