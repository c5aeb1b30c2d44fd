// Package config loads the optional YAML configuration file, whose values
// are the defaults of the command line flags.
package config

import (
	"bytes"
	"io"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/maxgio92/xstack/internal/settings"
	"github.com/maxgio92/xstack/pkg/ingest"
	"github.com/maxgio92/xstack/pkg/report"
	"github.com/maxgio92/xstack/pkg/server"
)

type Config struct {
	// Format of the inputs, one of ingest.Formats.
	Format     string            `yaml:"format"`
	Listen     string            `yaml:"listen"`
	Truncation report.Truncation `yaml:"truncation"`
	CacheSize  uint32            `yaml:"cache_size"`
	Demangle   bool              `yaml:"demangle"`
}

func Default() *Config {
	return &Config{
		Format:     ingest.FormatAuto.String(),
		Listen:     settings.DefaultListenAddr,
		Truncation: report.DefaultTruncation,
		CacheSize:  server.DefaultCacheSize,
	}
}

// Load parses the YAML input b over the defaults. Unknown keys are errors.
func Load(b []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile parses the given YAML file. An empty filename yields the defaults.
func LoadFile(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}

	cfg, err := Load(content)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing YAML file %s", filename)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	formats := make([]any, 0, len(ingest.Formats()))
	for _, f := range ingest.Formats() {
		formats = append(formats, f)
	}

	return validation.ValidateStruct(c,
		validation.Field(&c.Format, validation.Required, validation.In(formats...)),
		validation.Field(&c.Listen, validation.Required),
		validation.Field(&c.Truncation, validation.By(validTruncation)),
	)
}

func validTruncation(value any) error {
	t, ok := value.(report.Truncation)
	if !ok {
		return errors.New("truncation is invalid")
	}

	return validation.ValidateStruct(&t,
		validation.Field(&t.MinEntries, validation.Min(-1)),
		validation.Field(&t.MinPercent, validation.Min(0.0), validation.Max(100.0)),
	)
}
