package main

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	versionNotDetected = "not detected"
	versionUnknown     = "installed (unknown version)"
)

var versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

type PythonVersion struct {
	Major, Minor, Patch int
}

func (v PythonVersion) String() string {
	return fmt.Sprintf("%v.%v.%v", v.Major, v.Minor, v.Patch)
}

func (v PythonVersion) AtLeast(major, minor int) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

func ParsePythonVersion(s string) (PythonVersion, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 {
		return PythonVersion{}, fmt.Errorf("malformed python version %q", s)
	}
	var version PythonVersion
	var err error
	if version.Major, err = strconv.Atoi(parts[0]); err != nil {
		return PythonVersion{}, fmt.Errorf("malformed python version %q: %w", s, err)
	}
	if version.Minor, err = strconv.Atoi(parts[1]); err != nil {
		return PythonVersion{}, fmt.Errorf("malformed python version %q: %w", s, err)
	}
	if len(parts) > 2 {
		// patch may carry a suffix like "0rc1"
		digits := parts[2]
		if end := strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }); end >= 0 {
			digits = digits[:end]
		}
		version.Patch, _ = strconv.Atoi(digits)
	}
	return version, nil
}

// ToolEnv describes the Python interpreter the tools and artifacts run with.
type ToolEnv struct {
	Python  string
	Version PythonVersion
}

func NewToolEnv(ctx context.Context, python string) (*ToolEnv, error) {
	path, err := exec.LookPath(python)
	if err != nil {
		return nil, fmt.Errorf("python interpreter %v not found: %w", python, err)
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	output, err := runCmd(ctx, "", []string{path, "-c", "import sys; print('%d.%d.%d' % sys.version_info[:3])"})
	if err != nil {
		return nil, fmt.Errorf("python interpreter %v is not usable: %w", python, err)
	}
	version, err := ParsePythonVersion(string(output))
	if err != nil {
		return nil, err
	}
	Logger.Infof("python %v at %v", version, path)
	return &ToolEnv{Python: path, Version: version}, nil
}

func (e *ToolEnv) ModuleInstalled(ctx context.Context, module string) bool {
	script := fmt.Sprintf("import importlib.util, sys; sys.exit(0 if importlib.util.find_spec(%q) else 1)", module)
	_, err := runCmd(ctx, "", []string{e.Python, "-c", script})
	return err == nil
}

// ModuleVersion returns the __version__ (or VERSION) attribute of an importable
// module, or an empty string.
func (e *ToolEnv) ModuleVersion(ctx context.Context, module string) string {
	script := fmt.Sprintf(
		"import %v as m; print(getattr(m, '__version__', None) or getattr(m, 'VERSION', None) or '')",
		module,
	)
	output, err := runCmd(ctx, "", []string{e.Python, "-c", script})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

func (e *ToolEnv) PipInstall(ctx context.Context, spec string) error {
	args := append([]string{e.Python, "-m", "pip", "install"}, strings.Fields(spec)...)
	Logger.Infof("installing %v", spec)
	if _, err := runCmd(ctx, "", args); err != nil {
		return fmt.Errorf("pip install %v failed: %w", spec, err)
	}
	return nil
}

func commandVersion(ctx context.Context, args []string) string {
	if _, err := exec.LookPath(args[0]); err != nil {
		return ""
	}
	output, err := probeCmd(ctx, args)
	if err != nil {
		return ""
	}
	return versionPattern.FindString(output)
}
