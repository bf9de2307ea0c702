package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type TursoConfig struct {
	OrgName   string
	GroupName string
	ApiToken  string
	AuthToken string
}

type PublishConfig struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	PathStyle bool
}

type Config struct {
	TestFiles      []string
	Iterations     int
	Warmup         int
	OutputDir      string
	DisableTools   []string
	Python         string
	Install        bool
	KeepWorkspace  bool
	ClearCaches    bool
	Timeout        time.Duration
	SampleInterval time.Duration
	ToolsConfig    string
	ResultsDb      string
	Turso          TursoConfig
	S3             PublishConfig
}

// ToolOverride replaces parts of a built-in tool definition. Command and
// Output use the same placeholders as the built-in templates.
type ToolOverride struct {
	Enabled     *bool    `yaml:"enabled"`
	Description string   `yaml:"description"`
	Install     string   `yaml:"install"`
	Command     []string `yaml:"command"`
	Output      string   `yaml:"output"`
}

type ToolsConfig struct {
	Tools map[string]ToolOverride `yaml:"tools"`
}

func StringEnv(key string, def string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return value
}

func IntEnv(key string, def int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func BoolEnv(key string, def bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

func DurationEnv(key string, def time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

// LoadDotEnv reads .env from the working directory; a missing file is fine.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// DefaultConfig builds the configuration defaults from the environment.
func DefaultConfig() Config {
	return Config{
		Iterations:     IntEnv("BENCHMARK_ITERATIONS", 3),
		Warmup:         IntEnv("BENCHMARK_WARMUP", 0),
		OutputDir:      StringEnv("BENCHMARK_OUTPUT_DIR", "results"),
		Python:         StringEnv("BENCHMARK_PYTHON", "python3"),
		Install:        BoolEnv("BENCHMARK_INSTALL", false),
		KeepWorkspace:  BoolEnv("BENCHMARK_KEEP_WORKSPACE", false),
		ClearCaches:    BoolEnv("BENCHMARK_CLEAR_CACHES", false),
		Timeout:        DurationEnv("BENCHMARK_TIMEOUT", 5*time.Minute),
		SampleInterval: DurationEnv("BENCHMARK_SAMPLE_INTERVAL", 10*time.Millisecond),
		ToolsConfig:    StringEnv("BENCHMARK_TOOLS_CONFIG", ""),
		ResultsDb:      StringEnv("BENCHMARK_RESULTS_DB", ""),
		Turso: TursoConfig{
			OrgName:   StringEnv("TURSO_ORG_NAME", ""),
			GroupName: StringEnv("TURSO_GROUP_NAME", "obfuscation-benchmark"),
			ApiToken:  StringEnv("TURSO_API_TOKEN", ""),
			AuthToken: StringEnv("TURSO_AUTH_TOKEN", ""),
		},
		S3: PublishConfig{
			Bucket:    StringEnv("BENCHMARK_S3_BUCKET", ""),
			Prefix:    StringEnv("BENCHMARK_S3_PREFIX", "obfuscation-benchmark"),
			Region:    StringEnv("BENCHMARK_S3_REGION", "us-east-1"),
			Endpoint:  StringEnv("BENCHMARK_S3_ENDPOINT", ""),
			PathStyle: BoolEnv("BENCHMARK_S3_PATH_STYLE", false),
		},
	}
}

func (c *Config) Validate() error {
	if len(c.TestFiles) == 0 {
		return fmt.Errorf("at least one test file must be specified via --test-files")
	}
	for _, file := range c.TestFiles {
		info, err := os.Stat(file)
		if err != nil {
			return fmt.Errorf("test file not found: %v", file)
		}
		if info.IsDir() {
			return fmt.Errorf("test file is a directory: %v", file)
		}
	}
	if c.Iterations < 1 {
		return fmt.Errorf("iterations must be positive, got %v", c.Iterations)
	}
	if c.Warmup < 0 {
		return fmt.Errorf("warmup must not be negative, got %v", c.Warmup)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output dir must not be empty")
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("sample interval must be positive, got %v", c.SampleInterval)
	}
	return nil
}

func LoadToolsConfig(path string) (ToolsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ToolsConfig{}, fmt.Errorf("failed to read tools config %v: %w", path, err)
	}
	var config ToolsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return ToolsConfig{}, fmt.Errorf("failed to parse tools config %v: %w", path, err)
	}
	return config, nil
}
