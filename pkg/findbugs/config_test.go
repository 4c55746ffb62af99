package findbugs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sarang1991/findbugs/internal/annotation"
	"github.com/sarang1991/findbugs/pkg/suppress"
)

const sampleConfig = `
annotations:
  - owner: com.example.Library
    name: plain
    signature: ()I
exclude:
  - class: com\.example\.gen\..*
    reason: generated
min_priority: 2
check_all: true
detectors: [MethodReturnCheck]
`

func TestLoadConfig(t *testing.T) {
	p := filepath.Join(t.TempDir(), "findbugs.yaml")
	require.NoError(t, os.WriteFile(p, []byte(sampleConfig), 0o644))

	cfg, err := LoadConfig(t.Context(), p)
	require.NoError(t, err)

	opts := cfg.AnalyzerOptions()
	require.Equal(t, AnalyzerOptions{
		Detectors: []string{"MethodReturnCheck"},
		Annotations: annotation.Options{
			Catalog:  []annotation.CatalogEntry{{Owner: "com.example.Library", Name: "plain", Signature: "()I"}},
			CheckAll: true,
		},
		Exclude:     []suppress.Rule{{Class: `com\.example\.gen\..*`, Reason: "generated"}},
		MinPriority: 2,
	}, opts)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "unknown key", data: "bogus: 1\n", want: "bogus"},
		{name: "missing owner", data: "annotations:\n  - name: x\n", want: "owner and name are required"},
		{name: "bad yaml", data: "annotations: [\n", want: "decoding config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(t.Context(), filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
}

func TestConfigCatalogApplies(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)
	cfg.CheckAll = false

	app := parseAll(t, callsPlain("com.example.A"))
	aux := parseAll(t, library)
	result, err := NewAnalyzer(cfg.AnalyzerOptions()).Analyze(t.Context(), app, aux)
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	require.Equal(t, "plain", result.Findings[0].Called.Name)
}
