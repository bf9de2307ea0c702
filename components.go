package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source is a test program together with the local modules it imports.
type Source struct {
	Path         string
	Dependencies []string
}

func (s Source) Name() string { return stem(s.Path) }
func (s Source) Dir() string  { return filepath.Dir(s.Path) }

// Artifact is the runnable result of applying a tool to a Source.
type Artifact struct {
	Path  string
	Files []string
	Dir   string
	Cmd   []string
}

// Size is the total size of the produced files in bytes.
func (a Artifact) Size() (int64, error) {
	var size int64
	for _, file := range a.Files {
		info, err := os.Stat(file)
		if err != nil {
			return 0, err
		}
		size += info.Size()
	}
	return size, nil
}

type Tool interface {
	Name() string
	Description() string
	Installed(ctx context.Context, env *ToolEnv) bool
	Install(ctx context.Context, env *ToolEnv) error
	Version(ctx context.Context, env *ToolEnv) string
	Apply(ctx context.Context, env *ToolEnv, workspace string, source Source) (Artifact, error)
}

// Prober is implemented by tools whose invocation depends on the installed
// version. A non-nil error disables the tool for the run.
type Prober interface {
	Probe(ctx context.Context, env *ToolEnv) error
}

type Metric struct {
	Name           string
	Description    string
	Unit           string
	HigherIsBetter bool
}

var Metrics = []Metric{
	{Name: "execution_time", Description: "Execution time", Unit: "s"},
	{Name: "startup_time", Description: "Startup time", Unit: "ms"},
	{Name: "memory_usage", Description: "Memory usage", Unit: "MB"},
	{Name: "code_size", Description: "Code size", Unit: "KB"},
}

func (m Metric) Title() string { return fmt.Sprintf("%v (%v)", m.Description, m.Unit) }

// Run is one completed execution of an artifact.
type Run struct {
	TestFile      string  `json:"test_file"`
	Tool          string  `json:"tool"`
	Iteration     int     `json:"iteration"`
	ExecutionTime float64 `json:"execution_time"`
	StartupTime   float64 `json:"startup_time"`
	MemoryUsage   float64 `json:"memory_usage"`
	CodeSize      float64 `json:"code_size"`
	ExitCode      int     `json:"exit_code"`
	Failed        bool    `json:"failed"`
	Stdout        []byte  `json:"-"`
	Stderr        []byte  `json:"-"`
}

func (r Run) Value(metric string) float64 {
	switch metric {
	case "execution_time":
		return r.ExecutionTime
	case "startup_time":
		return r.StartupTime
	case "memory_usage":
		return r.MemoryUsage
	case "code_size":
		return r.CodeSize
	}
	panic(fmt.Sprintf("unknown metric %v", metric))
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
