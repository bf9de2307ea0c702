package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

var (
	fromImportPattern   = regexp.MustCompile(`(?m)^\s*from\s+([A-Za-z_]\w*)[\w.]*\s+import\b`)
	directImportPattern = regexp.MustCompile(`(?m)^\s*import\s+([^#\n]+)`)
)

// externalModules are never resolved to sibling files, even when a file with
// the same name sits next to the test program.
var externalModules = map[string]bool{
	"os": true, "sys": true, "time": true, "math": true, "re": true, "json": true,
	"shutil": true, "shlex": true, "platform": true, "tempfile": true, "logging": true,
	"argparse": true, "subprocess": true, "importlib": true, "statistics": true,
	"distutils": true, "numpy": true, "scipy": true, "cv2": true, "dlib": true,
	"imutils": true, "psutil": true, "matplotlib": true,
}

// importedModules lists top-level module names imported by Python source.
func importedModules(content string) []string {
	modules := make([]string, 0)
	for _, match := range fromImportPattern.FindAllStringSubmatch(content, -1) {
		modules = append(modules, match[1])
	}
	for _, match := range directImportPattern.FindAllStringSubmatch(content, -1) {
		for _, item := range strings.Split(match[1], ",") {
			fields := strings.Fields(item)
			if len(fields) == 0 {
				continue
			}
			name := strings.Split(fields[0], ".")[0]
			if name != "" {
				modules = append(modules, name)
			}
		}
	}
	slices.Sort(modules)
	return slices.Compact(modules)
}

// DetectDependencies finds the local modules (sibling .py files) imported by
// path, transitively. The result is sorted and never contains path itself.
func DetectDependencies(path string) ([]string, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	visited := map[string]bool{root: true}
	queue := []string{root}
	dependencies := make([]string, 0)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		content, err := os.ReadFile(current)
		if err != nil {
			return nil, fmt.Errorf("failed to read %v: %w", current, err)
		}
		for _, module := range importedModules(string(content)) {
			if externalModules[module] {
				continue
			}
			candidate := filepath.Join(filepath.Dir(current), module+".py")
			if visited[candidate] {
				continue
			}
			if info, err := os.Stat(candidate); err != nil || info.IsDir() {
				continue
			}
			visited[candidate] = true
			Logger.Debugf("dependency of %v found: %v", current, candidate)
			dependencies = append(dependencies, candidate)
			queue = append(queue, candidate)
		}
	}
	slices.Sort(dependencies)
	return dependencies, nil
}

func LoadSource(path string) (Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Source{}, err
	}
	dependencies, err := DetectDependencies(abs)
	if err != nil {
		return Source{}, err
	}
	return Source{Path: abs, Dependencies: dependencies}, nil
}
