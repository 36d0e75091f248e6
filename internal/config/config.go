package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Output formats accepted by default_output.
var outputFormats = []any{"auto", "json", "plain", "rich"}

// Store backends accepted by store_backend.
var storeBackends = []any{"auto", "keyring", "file", "memory", "none"}

// Config holds the CLI configuration. The encryption secret is deliberately
// absent: it only ever comes from the flag or the environment.
type Config struct {
	APIURL        string  `json:"api_url,omitempty"`
	DefaultOutput string  `json:"default_output,omitempty"`
	StoreBackend  string  `json:"store_backend,omitempty"`
	RateLimit     float64 `json:"rate_limit,omitempty"`
	Timeout       string  `json:"timeout,omitempty"`

	path string
}

// Validate implements validation.Validatable.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.APIURL, is.RequestURL),
		validation.Field(&c.DefaultOutput, validation.In(outputFormats...)),
		validation.Field(&c.StoreBackend, validation.In(storeBackends...)),
		validation.Field(&c.RateLimit, validation.Min(0.0)),
		validation.Field(&c.Timeout, validation.By(checkDuration)),
	)
}

func checkDuration(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return validation.NewError("validation_duration", "must be a duration such as 30s")
	}
	if d <= 0 {
		return validation.NewError("validation_duration_positive", "must be positive")
	}
	return nil
}

// TimeoutDuration returns the parsed timeout, or zero when unset.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Path returns the file this config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Load reads config from XDG path, returns defaults if file doesn't exist
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads config from path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{path: path}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes the config back to where it was loaded from.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// JSON is valid JSON5
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Keys lists the settable keys in sorted order.
func Keys() []string {
	t := reflect.TypeOf(Config{})
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		if name := jsonName(t.Field(i)); name != "" {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)
	return keys
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" || tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}

// field finds the struct field tagged with key.
func (c *Config) field(key string) (reflect.Value, error) {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		if jsonName(t.Field(i)) == key {
			return v.Field(i), nil
		}
	}

	return reflect.Value{}, fmt.Errorf("unknown config key: %s", key)
}

// Get retrieves a config value by key name. Unset values read as "".
func (c *Config) Get(key string) (string, error) {
	f, err := c.field(key)
	if err != nil {
		return "", err
	}
	if f.IsZero() {
		return "", nil
	}
	switch f.Kind() {
	case reflect.Float64:
		return strconv.FormatFloat(f.Float(), 'f', -1, 64), nil
	default:
		return fmt.Sprintf("%v", f.Interface()), nil
	}
}

// Set sets a config value by key name, validates and saves
func (c *Config) Set(key, value string) error {
	f, err := c.field(key)
	if err != nil {
		return err
	}

	prev := reflect.New(f.Type()).Elem()
	prev.Set(f)

	switch f.Kind() {
	case reflect.Float64:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number: %w", key, err)
		}
		f.SetFloat(n)
	default:
		f.SetString(value)
	}

	if err := c.Validate(); err != nil {
		f.Set(prev)
		return err
	}
	return c.Save()
}

// Unset sets a config value to its zero value and saves
func (c *Config) Unset(key string) error {
	f, err := c.field(key)
	if err != nil {
		return err
	}
	f.Set(reflect.Zero(f.Type()))
	return c.Save()
}
