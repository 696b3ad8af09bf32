// Package credentials loads secrets for the remote source and the message
// bus from credentials.toml, falling back to environment variables.
//
// File layout:
//
//	[remote]
//	api_key = "..."
//
//	[nats]
//	token = "..."
//
// The file must have mode 0400.
package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrInsecurePermissions is returned when the file is readable by anyone but
// its owner, or writable at all.
var ErrInsecurePermissions = fmt.Errorf("credentials file has insecure permissions")

// Services with credentials.
const (
	ServiceRemote = "remote"
	ServiceNATS   = "nats"
)

// Credentials holds the secrets found in a file.
type Credentials struct {
	Remote *Section `toml:"remote"`
	NATS   *Section `toml:"nats"`
}

// Section is one service's secrets.
type Section struct {
	APIKey string `toml:"api_key"`
	Token  string `toml:"token"`
}

func (s *Section) secret() string {
	if s == nil {
		return ""
	}
	if s.APIKey != "" {
		return s.APIKey
	}
	return s.Token
}

// StandardPaths returns the credential file locations in priority order.
func StandardPaths() []string {
	paths := []string{"credentials.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "finserve", "credentials.toml"),
			filepath.Join(home, ".finserve", "credentials.toml"),
		)
	}
	return paths
}

// Load reads the first file found in StandardPaths. No file is not an
// error: it returns nil credentials and an empty path.
func Load() (*Credentials, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			creds, err := LoadFile(path)
			return creds, path, err
		}
	}
	return nil, "", nil
}

// LoadFile reads path. Returns ErrInsecurePermissions unless the mode is 0400.
func LoadFile(path string) (*Credentials, error) {
	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if mode := info.Mode().Perm(); mode != 0400 {
			return nil, fmt.Errorf("%w: %s has mode %04o (must be 0400)",
				ErrInsecurePermissions, path, mode)
		}
	}

	var creds Credentials
	if _, err := toml.DecodeFile(path, &creds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &creds, nil
}

// Secret returns the secret for service. The file wins over the environment
// variable FINSERVE_<SERVICE>_API_KEY.
func (c *Credentials) Secret(service string) string {
	if c != nil {
		var s *Section
		switch service {
		case ServiceRemote:
			s = c.Remote
		case ServiceNATS:
			s = c.NATS
		}
		if v := s.secret(); v != "" {
			return v
		}
	}
	return os.Getenv(EnvVar(service))
}

// EnvVar names the fallback environment variable for service.
func EnvVar(service string) string {
	return "FINSERVE_" + strings.ToUpper(strings.ReplaceAll(service, "-", "_")) + "_API_KEY"
}
