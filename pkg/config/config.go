// Package config loads bimgraph settings from YAML and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/validation"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config is the complete bimgraph configuration
type Config struct {
	Store   StoreConfig  `yaml:"store"`
	Anchors []string     `yaml:"anchors"`
	Input   InputConfig  `yaml:"input"`
	Server  ServerConfig `yaml:"server"`
	Log     LogConfig    `yaml:"log"`
	Backup  BackupConfig `yaml:"backup"`
}

// StoreConfig selects and configures the graph store
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	DataDir     string `yaml:"data_dir"`
	CompressWAL bool   `yaml:"compress_wal"`
	DatabaseURL string `yaml:"database_url"`
	MaxConns    int32  `yaml:"max_conns"`
}

// InputConfig names the BIM document and how to follow it
type InputConfig struct {
	Path     string        `yaml:"path"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// ServerConfig configures the HTTP query API
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level"`
}

// BackupConfig configures snapshot upload to S3. Credentials fall back to
// the default AWS chain when the keys are empty.
type BackupConfig struct {
	Bucket          string        `yaml:"bucket"`
	Prefix          string        `yaml:"prefix"`
	Region          string        `yaml:"region"`
	Endpoint        string        `yaml:"endpoint"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	UsePathStyle    bool          `yaml:"use_path_style"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:  BackendMemory,
			MaxConns: 10,
		},
		Anchors: append([]string{}, bim.DefaultAnchorIDs...),
		Input: InputConfig{
			Debounce: 500 * time.Millisecond,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Backup: BackupConfig{
			Prefix:  "bimgraph",
			Region:  "us-east-1",
			Timeout: 2 * time.Minute,
		},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays YAML onto cfg. Unknown keys are rejected.
func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// ApplyEnv applies BIMGRAPH_* overrides found by lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("BIMGRAPH_STORE_BACKEND", &c.Store.Backend)
	str("BIMGRAPH_DATA_DIR", &c.Store.DataDir)
	str("BIMGRAPH_DATABASE_URL", &c.Store.DatabaseURL)
	str("BIMGRAPH_INPUT", &c.Input.Path)
	str("BIMGRAPH_ADDR", &c.Server.Addr)
	str("LOG_LEVEL", &c.Log.Level)
	str("BIMGRAPH_LOG_LEVEL", &c.Log.Level)
	str("BIMGRAPH_BACKUP_BUCKET", &c.Backup.Bucket)
	str("BIMGRAPH_BACKUP_ENDPOINT", &c.Backup.Endpoint)

	if v, ok := lookup("BIMGRAPH_ANCHORS"); ok && v != "" {
		c.Anchors = splitList(v)
	}
	if v, ok := lookup("BIMGRAPH_WATCH"); ok && v != "" {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BIMGRAPH_WATCH: %w", err)
		}
		c.Input.Watch = watch
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// AnchorSet returns the configured external anchors
func (c *Config) AnchorSet() bim.AnchorSet {
	return bim.NewAnchorSet(c.Anchors...)
}

// Validate checks every section and reports all problems at once
func (c *Config) Validate() error {
	anchors := validation.NewConfigValidator("anchors")
	for i, a := range c.Anchors {
		anchors.Required(fmt.Sprintf("[%d]", i), strings.TrimSpace(a))
	}
	return validation.ValidateAll(&c.Store, anchors, &c.Input, &c.Server, &c.Log, &c.Backup)
}

// Validate checks the store section
func (s *StoreConfig) Validate() error {
	v := validation.NewConfigValidator("store")
	v.OneOf("backend", s.Backend, []string{BackendMemory, BackendPostgres})
	v.When(s.Backend == BackendPostgres, func(v *validation.ConfigValidator) {
		v.Required("database_url", s.DatabaseURL).
			URL("database_url", s.DatabaseURL, "postgres", "postgresql").
			Positive("max_conns", int(s.MaxConns))
	})
	return v.Validate()
}

// Validate checks the input section
func (i *InputConfig) Validate() error {
	v := validation.NewConfigValidator("input")
	v.When(i.Watch, func(v *validation.ConfigValidator) {
		v.Required("path", i.Path).
			MinDuration("debounce", i.Debounce, 10*time.Millisecond)
	})
	return v.Validate()
}

// Validate checks the server section
func (s *ServerConfig) Validate() error {
	return validation.NewConfigValidator("server").
		ListenAddr("addr", s.Addr).
		RangeDuration("shutdown_timeout", s.ShutdownTimeout, time.Second, 5*time.Minute).
		MinDuration("request_timeout", s.RequestTimeout, 100*time.Millisecond).
		Validate()
}

// Validate checks the log section
func (l *LogConfig) Validate() error {
	return validation.NewConfigValidator("log").
		OneOf("level", strings.ToLower(l.Level), []string{"debug", "info", "warn", "warning", "error"}).
		Validate()
}

// Validate checks the backup section. An empty bucket disables backups.
func (b *BackupConfig) Validate() error {
	v := validation.NewConfigValidator("backup")
	v.When(b.Bucket != "", func(v *validation.ConfigValidator) {
		v.Required("region", b.Region).
			MinDuration("timeout", b.Timeout, time.Second)
	})
	v.When(b.Endpoint != "", func(v *validation.ConfigValidator) {
		v.URL("endpoint", b.Endpoint, "http", "https")
	})
	v.When((b.AccessKeyID == "") != (b.SecretAccessKey == ""), func(v *validation.ConfigValidator) {
		v.Custom("access_key_id", func() error {
			return errors.New("access_key_id and secret_access_key must be set together")
		})
	})
	return v.Validate()
}
