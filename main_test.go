package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunBenchmarkConfigErrors(t *testing.T) {
	config := DefaultConfig()
	require.ErrorContains(t, runBenchmark(context.Background(), config), "at least one test file")

	program := filepath.Join(t.TempDir(), "program.py")
	require.Nil(t, os.WriteFile(program, []byte("print(1)\n"), 0o644))
	config.TestFiles = []string{program}
	config.DisableTools = []string{"nuitka"}
	require.ErrorContains(t, runBenchmark(context.Background(), config), `unknown tool "nuitka"`)
}

func TestRootCmdRequiresTestFiles(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--iterations", "2"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	require.ErrorContains(t, root.Execute(), "test-files")
}

func TestPrintTools(t *testing.T) {
	var out bytes.Buffer
	require.Nil(t, printTools(&out, []ToolInfo{
		{Name: "original", Enabled: true, Version: "python 3.12.1", Description: "Original code"},
		{Name: "opy", Reason: "disabled by default", Version: versionNotDetected, Description: "AST based obfuscation"},
	}))
	require.Contains(t, out.String(), "TOOL")
	require.Contains(t, out.String(), "original")
	require.Contains(t, out.String(), "disabled: disabled by default")
}

func TestRunBenchmarkEndToEnd(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 is not available")
	}
	src := t.TempDir()
	writeFiles(t, src, map[string]string{
		"main.py":   "import helper\n\nif __name__ == '__main__':\n    print(helper.square(7))\n",
		"helper.py": "def square(x):\n    return x * x\n",
	})
	output := filepath.Join(t.TempDir(), "results")

	config := DefaultConfig()
	config.TestFiles = []string{filepath.Join(src, "main.py")}
	config.Iterations = 2
	config.OutputDir = output
	config.ResultsDb = filepath.Join(t.TempDir(), "results.db")
	config.S3.Bucket = ""
	config.DisableTools = []string{"pyarmor7", "pyarmor", "pyminifier", "pyobfuscate", "cython", "pyinstaller"}

	require.Nil(t, runBenchmark(context.Background(), config))
	for _, name := range []string{summaryFile, resultsFile, systemInfoFile, markdownFile, htmlFile} {
		require.FileExists(t, filepath.Join(output, name))
	}
	data, err := os.ReadFile(filepath.Join(output, resultsFile))
	require.Nil(t, err)
	require.Equal(t, 3, bytes.Count(data, []byte("\n")))
	require.Contains(t, string(data), ",original,2,")
}

func TestRootCmdTestFilesList(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{"a.py": "print(1)\n", "b.py": "print(2)\n"})
	a, b := filepath.Join(src, "a.py"), filepath.Join(src, "b.py")

	root := newRootCmd()
	root.SetArgs([]string{"-t", a, filepath.Join(src, "missing.py")})
	require.ErrorContains(t, root.Execute(), "test file not found: "+filepath.Join(src, "missing.py"))

	// both files are accepted, validation stops at the next setting
	root = newRootCmd()
	root.SetArgs([]string{"-t", a, b, "--iterations", "0"})
	require.ErrorContains(t, root.Execute(), "iterations must be positive")
}
