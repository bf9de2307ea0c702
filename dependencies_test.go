package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.Nil(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.Nil(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestImportedModules(t *testing.T) {
	content := `import os, sys
from helper import compute
import pkg.sub as alias
    import indented
# import commented
x = "import nothing"
`
	require.Equal(t, []string{"helper", "indented", "os", "pkg", "sys"}, importedModules(content))
}

func TestDetectDependencies(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"main.py":       "import os\nimport helper\n\nhelper.run()\n",
		"helper.py":     "from util import value\nimport main\n\ndef run():\n    print(value)\n",
		"util.py":       "import helper\nvalue = 42\n",
		"os.py":         "# shadows the standard library\n",
		"unused.py":     "print('never imported')\n",
		"nested/mod.py": "value = 1\n",
	})

	dependencies, err := DetectDependencies(filepath.Join(dir, "main.py"))
	require.Nil(t, err)
	require.Equal(t, []string{filepath.Join(dir, "helper.py"), filepath.Join(dir, "util.py")}, dependencies)
}

func TestDetectDependenciesWithoutImports(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"single.py": "print('hello')\n"})

	source, err := LoadSource(filepath.Join(dir, "single.py"))
	require.Nil(t, err)
	require.Empty(t, source.Dependencies)
	require.Equal(t, "single", source.Name())
	require.Equal(t, dir, source.Dir())

	_, err = DetectDependencies(filepath.Join(dir, "missing.py"))
	require.NotNil(t, err)
}
