package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for pagesync.
type Config struct {
	BaseDir  string         `toml:"base_dir"`
	LogDir   string         `toml:"log_dir"`
	Store    StoreConfig    `toml:"store"`
	Auth     AuthConfig     `toml:"auth"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Media    MediaConfig    `toml:"media"`
}

// StoreConfig represents configuration for the content store backend.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type StoreConfig struct {
	Type string `toml:"type"` // "github", "s3", "filesystem", or "memory"

	// Repository session (only used when Type == "github")
	Owner      string `toml:"owner,omitempty"`
	Repo       string `toml:"repo,omitempty"`
	Branch     string `toml:"branch,omitempty"`
	APIBaseURL string `toml:"api_base_url,omitempty"` // GitHub Enterprise or test server

	// S3-specific fields (only used when Type == "s3")
	S3Bucket      string `toml:"s3_bucket,omitempty"`
	S3Prefix      string `toml:"s3_prefix,omitempty"`
	S3Region      string `toml:"s3_region,omitempty"`
	S3AccessKeyID string `toml:"s3_access_key_id,omitempty"`
	S3Endpoint    string `toml:"s3_endpoint,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// AuthConfig holds paths for the stored credentials.
type AuthConfig struct {
	CredentialsPath string `toml:"credentials_path"` // age-encrypted bearer token
	SessionPath     string `toml:"session_path"`     // plaintext username marker
}

// DatabaseConfig represents configuration for the local drafts database.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ServerConfig holds the HTTP API settings for the browser UI.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// MediaConfig lists the folders media uploads are allowed into.
type MediaConfig struct {
	Folders []string `toml:"folders"`
}

// NewConfig creates a new Config with the provided base directory and
// default paths.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Store: StoreConfig{
			Type:   "github",
			Branch: "master",
		},
		Auth: AuthConfig{
			CredentialsPath: filepath.Join(baseDir, "credentials.age"),
			SessionPath:     filepath.Join(baseDir, "session"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8173",
		},
		Media: MediaConfig{
			Folders: []string{"images", "pdfs"},
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
