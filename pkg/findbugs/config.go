package findbugs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/sarang1991/findbugs/internal/annotation"
	"github.com/sarang1991/findbugs/pkg/suppress"
)

// Config is the optional yaml configuration file.
type Config struct {
	// Annotations extends the catalog of methods whose result must be used.
	Annotations []annotation.CatalogEntry `yaml:"annotations,omitempty"`

	// NoDefaultCatalog drops the built in catalog.
	NoDefaultCatalog bool `yaml:"no_default_catalog,omitempty"`

	Exclude     []suppress.Rule `yaml:"exclude,omitempty"`
	MinPriority int             `yaml:"min_priority,omitempty"`
	CheckAll    bool            `yaml:"check_all,omitempty"`
	Detectors   []string        `yaml:"detectors,omitempty"`
}

// LoadConfig reads a Config from a local path or afs URL. Unknown keys are
// rejected.
func LoadConfig(ctx context.Context, location string) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, toURL(location))
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", location, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a yaml Config.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	for i, e := range cfg.Annotations {
		if e.Owner == "" || e.Name == "" {
			return nil, fmt.Errorf("annotations[%d]: owner and name are required", i)
		}
	}
	return &cfg, nil
}

// AnalyzerOptions converts the configuration into analyzer options.
func (c *Config) AnalyzerOptions() AnalyzerOptions {
	return AnalyzerOptions{
		Detectors: c.Detectors,
		Annotations: annotation.Options{
			Catalog:          c.Annotations,
			NoDefaultCatalog: c.NoDefaultCatalog,
			CheckAll:         c.CheckAll,
		},
		Exclude:     c.Exclude,
		MinPriority: c.MinPriority,
	}
}
