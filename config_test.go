package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("BENCHMARK_ITERATIONS", "7")
	t.Setenv("BENCHMARK_TIMEOUT", "30s")
	t.Setenv("BENCHMARK_S3_PATH_STYLE", "true")
	t.Setenv("BENCHMARK_WARMUP", "not-a-number")

	config := DefaultConfig()
	require.Equal(t, 7, config.Iterations)
	require.Equal(t, 30*time.Second, config.Timeout)
	require.True(t, config.S3.PathStyle)
	require.Equal(t, 0, config.Warmup)
	require.Equal(t, 10*time.Millisecond, config.SampleInterval)
	require.Equal(t, "obfuscation-benchmark", config.Turso.GroupName)
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	program := filepath.Join(dir, "program.py")
	require.Nil(t, os.WriteFile(program, []byte("print(1)\n"), 0o644))

	valid := func() Config {
		config := DefaultConfig()
		config.TestFiles = []string{program}
		config.Iterations = 3
		return config
	}

	config := valid()
	require.Nil(t, config.Validate())

	config = valid()
	config.TestFiles = nil
	require.ErrorContains(t, config.Validate(), "at least one test file")

	config = valid()
	config.TestFiles = []string{filepath.Join(dir, "missing.py")}
	require.ErrorContains(t, config.Validate(), "not found")

	config = valid()
	config.TestFiles = []string{dir}
	require.ErrorContains(t, config.Validate(), "directory")

	config = valid()
	config.Iterations = 0
	require.ErrorContains(t, config.Validate(), "iterations")

	config = valid()
	config.SampleInterval = 0
	require.ErrorContains(t, config.Validate(), "sample interval")
}

func TestLoadToolsConfig(t *testing.T) {
	_, err := LoadToolsConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NotNil(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.Nil(t, os.WriteFile(path, []byte("tools: [unterminated"), 0o644))
	_, err = LoadToolsConfig(path)
	require.ErrorContains(t, err, "failed to parse")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.Nil(t, err)
	require.Nil(t, os.Chdir(dir))
	defer os.Chdir(wd)

	require.Nil(t, LoadDotEnv())

	require.Nil(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BENCHMARK_DOTENV_PROBE=42\n"), 0o644))
	t.Setenv("BENCHMARK_DOTENV_PROBE", "")
	os.Unsetenv("BENCHMARK_DOTENV_PROBE")
	require.Nil(t, LoadDotEnv())
	require.Equal(t, 42, IntEnv("BENCHMARK_DOTENV_PROBE", 0))
}
