package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abelbrown/universal/internal/record"
)

// Config is the persistent application configuration
type Config struct {
	// Backend endpoints
	API APIConfig `json:"api" yaml:"api"`

	// UI Preferences
	UI UIConfig `json:"ui" yaml:"ui"`

	// Record types the browser can show, in tab order
	DataSources []DataSource `json:"data_sources" yaml:"data_sources"`
}

// APIConfig describes the record backend
type APIConfig struct {
	BaseURL        string  `json:"base_url" yaml:"base_url"`
	ImageBase      string  `json:"image_base,omitempty" yaml:"image_base,omitempty"`
	DefaultImage   string  `json:"default_image,omitempty" yaml:"default_image,omitempty"`
	LinkBase       string  `json:"link_base,omitempty" yaml:"link_base,omitempty"` // notification deep links
	MapURL         string  `json:"map_url,omitempty" yaml:"map_url,omitempty"`     // {lat} and {lng} are substituted
	RateLimit      float64 `json:"rate_limit" yaml:"rate_limit"`                   // requests per second, 0 = unlimited
	Burst          int     `json:"burst" yaml:"burst"`
	TimeoutSeconds int     `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// UIConfig holds UI preferences
type UIConfig struct {
	ProximityRows int  `json:"proximity_rows" yaml:"proximity_rows"` // rows from the end that trigger the next page
	ShowImages    bool `json:"show_images" yaml:"show_images"`
}

// DataSource is one browsable record type
type DataSource struct {
	Name      string          `json:"name" yaml:"name"`                       // path segment, e.g. "items"
	Title     string          `json:"title,omitempty" yaml:"title,omitempty"` // tab label, defaults to Name
	Fields    record.FieldMap `json:"fields" yaml:"fields"`
	EditField string          `json:"edit_field,omitempty" yaml:"edit_field,omitempty"` // field the inline editor writes
}

// Label returns the tab label.
func (d DataSource) Label() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:3000",
			DefaultImage:   "/images/placeholder.png",
			RateLimit:      10,
			Burst:          4,
			TimeoutSeconds: 30,
		},
		UI: UIConfig{
			ProximityRows: 3,
		},
		DataSources: []DataSource{
			{
				Name:  "items",
				Title: "Items",
				Fields: record.FieldMap{
					ImageField:       "image",
					HeadingField:     "name",
					SubHeadingFields: []string{"description"},
					IDField:          "id",
				},
				EditField: "status",
			},
		},
	}
}

// DataDir returns the directory holding config, cache, and logs
func DataDir() string {
	if dir := os.Getenv("UNIVERSAL_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".universal")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// Load reads config from the default path, or returns defaults
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads config from path. A missing file yields defaults populated
// from the environment. Files ending in .yaml or .yml are parsed as YAML,
// everything else as JSON.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			cfg.AutoPopulateFromEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	// decoded sources replace the default list rather than merging into it
	cfg.DataSources = nil
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.AutoPopulateFromEnv()
	return cfg, nil
}

// Save writes config to the default path
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes config to path in the format implied by its extension
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// AutoPopulateFromEnv overrides endpoints from environment variables
func (c *Config) AutoPopulateFromEnv() {
	c.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(get func(string) string) {
	if v := get("UNIVERSAL_API_BASE"); v != "" {
		c.API.BaseURL = v
	}
	if v := get("UNIVERSAL_IMAGE_BASE"); v != "" {
		c.API.ImageBase = v
	}
	if v := get("UNIVERSAL_LINK_BASE"); v != "" {
		c.API.LinkBase = v
	}
	if v := get("UNIVERSAL_RATE_LIMIT"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			c.API.RateLimit = rps
		}
	}
}

// LoadEnvFile applies UNIVERSAL_* assignments from a shell script of
// `export KEY=value` lines. Unknown keys and malformed lines are skipped.
func (c *Config) LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	vars := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.HasPrefix(key, "#") {
			continue
		}
		vars[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}

	c.applyEnv(func(k string) string { return vars[k] })
	return nil
}

// Validate reports every problem that would stop the browser from working.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.API.BaseURL) == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if len(c.DataSources) == 0 {
		errs = append(errs, errors.New("at least one data source is required"))
	}
	seen := make(map[string]bool)
	for i, ds := range c.DataSources {
		if ds.Name == "" {
			errs = append(errs, fmt.Errorf("data_sources[%d]: name is required", i))
			continue
		}
		if seen[ds.Name] {
			errs = append(errs, fmt.Errorf("data_sources[%d]: duplicate name %q", i, ds.Name))
		}
		seen[ds.Name] = true
		if ds.Fields.IDField == "" {
			errs = append(errs, fmt.Errorf("data source %q: fields.id_field is required", ds.Name))
		}
	}
	return errors.Join(errs...)
}

// DataSource returns the source named name.
func (c *Config) DataSource(name string) (DataSource, bool) {
	for _, ds := range c.DataSources {
		if ds.Name == name {
			return ds, true
		}
	}
	return DataSource{}, false
}

// DBPath returns the Persistent Mirror database path.
func DBPath() string {
	return filepath.Join(DataDir(), "mirror.db")
}

// EventsPath returns the JSONL event journal path.
func EventsPath() string {
	return filepath.Join(DataDir(), "events.jsonl")
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
