// Package config loads the service configuration.
//
// The file is TOML by default; a .yaml or .yml extension selects YAML. Before
// parsing, variables from .env files in the working directory are loaded and
// ${VAR} references in the file are expanded.
//
//	[server]
//	addr = ":8080"
//
//	[cache]
//	backend = "sqlite"          # memory | sqlite | nats
//	path = "finserve.db"
//
//	[remote]
//	kind = "rest"               # stub | memory | rest | bus
//	base_url = "https://project.supabase.co/rest/v1"
//	timeout = "10s"
//
//	[auth]
//	admins = ["ops@finserve.com"]
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheNATS   = "nats"
)

// Remote kinds.
const (
	RemoteStub   = "stub"
	RemoteMemory = "memory"
	RemoteREST   = "rest"
	RemoteBus    = "bus"
)

// Duration is a time.Duration written as "10s" in config files.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Cache     CacheConfig     `toml:"cache" yaml:"cache"`
	Remote    RemoteConfig    `toml:"remote" yaml:"remote"`
	NATS      NATSConfig      `toml:"nats" yaml:"nats"`
	Auth      AuthConfig      `toml:"auth" yaml:"auth"`
	Telemetry TelemetryConfig `toml:"telemetry" yaml:"telemetry"`
	Log       LogConfig       `toml:"log" yaml:"log"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr"`

	// ReconcileWait bounds how long a ?wait=true read blocks.
	ReconcileWait Duration `toml:"reconcile_wait" yaml:"reconcile_wait"`
}

// CacheConfig selects the durable cache.
type CacheConfig struct {
	Backend string `toml:"backend" yaml:"backend"`
	Path    string `toml:"path" yaml:"path"`     // sqlite file
	Bucket  string `toml:"bucket" yaml:"bucket"` // nats KV bucket
}

// RemoteConfig selects the remote source.
type RemoteConfig struct {
	Kind          string   `toml:"kind" yaml:"kind"`
	BaseURL       string   `toml:"base_url" yaml:"base_url"`
	SubjectPrefix string   `toml:"subject_prefix" yaml:"subject_prefix"`
	Timeout       Duration `toml:"timeout" yaml:"timeout"`

	// Serve answers bus requests from a REST source in this process.
	Serve bool `toml:"serve" yaml:"serve"`

	// RateLimit caps remote calls per RateWindow. Zero disables throttling.
	// With NATS connected, reductions are shared between processes.
	RateLimit  int      `toml:"rate_limit" yaml:"rate_limit"`
	RateWindow Duration `toml:"rate_window" yaml:"rate_window"`
}

// NATSConfig locates the NATS server used by the nats cache and bus remote.
type NATSConfig struct {
	URL  string `toml:"url" yaml:"url"`
	Name string `toml:"name" yaml:"name"`
}

// AuthConfig configures the mock identity provider.
type AuthConfig struct {
	// Admins lists emails granted the admin role.
	Admins []string `toml:"admins" yaml:"admins"`
}

// TelemetryConfig configures tracing and the audit journal.
type TelemetryConfig struct {
	Endpoint        string   `toml:"endpoint" yaml:"endpoint"`
	Protocol        string   `toml:"protocol" yaml:"protocol"` // grpc | http
	Debug           bool     `toml:"debug" yaml:"debug"`
	SampleRatio     float64  `toml:"sample_ratio" yaml:"sample_ratio"`
	JournalProtocol string   `toml:"journal_protocol" yaml:"journal_protocol"` // http | file | noop
	JournalEndpoint string   `toml:"journal_endpoint" yaml:"journal_endpoint"`
	FlushInterval   Duration `toml:"flush_interval" yaml:"flush_interval"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          ":8080",
			ReconcileWait: Duration{2 * time.Second},
		},
		Cache: CacheConfig{
			Backend: CacheSQLite,
			Path:    "finserve.db",
			Bucket:  "finserve-cache",
		},
		Remote: RemoteConfig{
			Kind:          RemoteStub,
			SubjectPrefix: "finserve.remote",
			Timeout:       Duration{10 * time.Second},
			RateWindow:    Duration{time.Minute},
		},
		NATS: NATSConfig{
			URL:  "nats://localhost:4222",
			Name: "finserve",
		},
		Telemetry: TelemetryConfig{
			Protocol:        "grpc",
			JournalProtocol: "noop",
			FlushInterval:   Duration{30 * time.Second},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over Default. An empty path returns Default after loading
// .env files.
func Load(path string) (*Config, error) {
	_ = LoadEnv()
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse %s: unknown keys %v", path, undecoded)
		}
	}
	return cfg, cfg.Validate()
}

// LoadEnv loads .env and .env.local from the working directory into the
// process environment without overriding variables already set.
func LoadEnv() error {
	var found []string
	for _, p := range []string{".env", ".env.local"} {
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return os.ErrNotExist
	}
	return godotenv.Load(found...)
}

// Validate checks enumerations and required fields.
func (c *Config) Validate() error {
	if !slices.Contains([]string{CacheMemory, CacheSQLite, CacheNATS}, c.Cache.Backend) {
		return fmt.Errorf("cache.backend: unknown %q", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheSQLite && c.Cache.Path == "" {
		return fmt.Errorf("cache.path: required for sqlite")
	}
	if !slices.Contains([]string{RemoteStub, RemoteMemory, RemoteREST, RemoteBus}, c.Remote.Kind) {
		return fmt.Errorf("remote.kind: unknown %q", c.Remote.Kind)
	}
	if (c.Remote.Kind == RemoteREST || c.Remote.Serve) && c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url: required for rest")
	}
	if c.Remote.RateLimit < 0 {
		return fmt.Errorf("remote.rate_limit: must not be negative")
	}
	if c.Remote.RateLimit > 0 && c.Remote.RateWindow.Duration <= 0 {
		return fmt.Errorf("remote.rate_window: required with rate_limit")
	}
	if c.NeedsNATS() && c.NATS.URL == "" {
		return fmt.Errorf("nats.url: required")
	}
	if r := c.Telemetry.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry.sample_ratio: must be within [0, 1]")
	}
	if p := c.Telemetry.Protocol; p != "" && p != "grpc" && p != "http" {
		return fmt.Errorf("telemetry.protocol: unknown %q", p)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr: required")
	}
	return nil
}

// IsAdmin reports whether email is on the admin allowlist, ignoring case.
func (a AuthConfig) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, admin := range a.Admins {
		if strings.ToLower(strings.TrimSpace(admin)) == email {
			return true
		}
	}
	return false
}

// NeedsNATS reports whether any component connects to NATS.
func (c *Config) NeedsNATS() bool {
	return c.Cache.Backend == CacheNATS || c.Remote.Kind == RemoteBus || c.Remote.Serve
}
