package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	CompilerConfig struct {
		ZoomVariable      string   `yaml:"zoom_variable" validate:"required,startswith=@"`
		PixelSize         float64  `yaml:"pixel_size" validate:"gt=0"`
		DefaultFont       string   `yaml:"default_font" validate:"required"`
		FontDirs          []string `yaml:"font_dirs" validate:"dive,required"`
		SpritePixelRatio  int      `yaml:"sprite_pixel_ratio" validate:"oneof=1 2"`
		IncludeBackground bool     `yaml:"include_background"`
	}

	FetchConfig struct {
		Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
		UserAgent string        `yaml:"user_agent"`
		APIKey    SecretString  `yaml:"api_key,omitempty"`
		APIHost   string        `yaml:"api_host" validate:"omitempty,hostname"`
		CacheSize int64         `yaml:"cache_size" validate:"gte=0"`
		CacheTTL  time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	}

	OutputConfig struct {
		Format       string `yaml:"format" validate:"oneof=json yaml yml xml tree"`
		NameTemplate string `yaml:"name_template" validate:"required"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Compiler  CompilerConfig `yaml:"compiler"`
		Fetch     FetchConfig    `yaml:"fetch"`
		Output    OutputConfig   `yaml:"output"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

type TemplateFieldName string

// NOTE: must match yaml field names above. Name template is expanded later for
// every output file, keys may contain anything including template delimiters.
const (
	NameTemplateFieldName TemplateFieldName = "name_template"
	APIKeyFieldName       TemplateFieldName = "api_key"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(NameTemplateFieldName)),
	gencfg.WithDoNotExpandField(string(APIKeyFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

// Dump returns active configuration as YAML, secrets are masked.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
