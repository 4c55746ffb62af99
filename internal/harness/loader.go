package harness

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
	yaml "gopkg.in/yaml.v3"

	"github.com/stretchr/testify/require"

	"github.com/sarang1991/findbugs/pkg/classfile"
	"github.com/sarang1991/findbugs/pkg/classfile/classfiletest"
)

// Archive members of a test case.
const (
	fileExpected = "expected.yaml"
	fileApp      = "app.yaml"
	fileAux      = "aux.yaml"
)

// LoadTestCase loads a test case from a txtar archive. The archive comment
// becomes the case description.
func LoadTestCase(t *testing.T, path, root string) *TestCase {
	t.Helper()
	ar, err := txtar.ParseFile(path)
	require.NoError(t, err)

	tc := &TestCase{Description: strings.TrimSpace(string(ar.Comment))}
	var sawExpected, sawApp bool
	for _, f := range ar.Files {
		switch f.Name {
		case fileExpected:
			require.NoError(t, yaml.Unmarshal(f.Data, tc), "%s: %s", path, f.Name)
			sawExpected = true
		case fileApp:
			require.NoError(t, yaml.Unmarshal(f.Data, &tc.App), "%s: %s", path, f.Name)
			sawApp = true
		case fileAux:
			require.NoError(t, yaml.Unmarshal(f.Data, &tc.Aux), "%s: %s", path, f.Name)
		default:
			t.Fatalf("%s: unexpected archive member %q", path, f.Name)
		}
	}
	require.True(t, sawExpected, "%s: missing %s", path, fileExpected)
	require.True(t, sawApp, "%s: missing %s", path, fileApp)

	tc.Name = strings.TrimSuffix(filepath.Base(path), ".txtar")
	if rel, err := filepath.Rel(root, path); err == nil {
		tc.Name = strings.TrimSuffix(rel, ".txtar")
	}
	return tc
}

// WriteClassDir compiles fixture classes into a directory tree laid out by
// package, the way javac -d does.
func WriteClassDir(t *testing.T, dir string, fx Fixture) {
	t.Helper()
	for _, c := range fx.Classes {
		p := filepath.Join(dir, filepath.FromSlash(classfile.SlashedName(c.Name))+".class")
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, classfiletest.MustBuild(t, c), 0o644))
	}
}

// WriteJar compiles fixture classes into a jar archive.
func WriteJar(t *testing.T, path string, fx Fixture) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, c := range fx.Classes {
		w, err := zw.Create(classfile.SlashedName(c.Name) + ".class")
		require.NoError(t, err)
		_, err = w.Write(classfiletest.MustBuild(t, c))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}
