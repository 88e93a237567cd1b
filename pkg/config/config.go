package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

// PageSize is the number of records requested from the catalog per page. The
// pagination rules depend on it, so it is not configurable beyond validation.
const PageSize = 20

const (
	DefaultBaseURL     = "https://openlibrary.org"
	DefaultCoversURL   = "https://covers.openlibrary.org"
	DefaultPlaceholder = "https://via.placeholder.com/200x300?text=No+Cover"
)

type Config struct {
	StorageDir    string        `toml:"storage_dir"`
	DebugServices []string      `toml:"debug_services"`
	Catalog       CatalogConfig `toml:"catalog"`
	Search        SearchConfig  `toml:"search"`
	Web           WebConfig     `toml:"web"`
}

type CatalogConfig struct {
	BaseURL             string   `toml:"base_url"`
	CoversURL           string   `toml:"covers_url"`
	PlaceholderCoverURL string   `toml:"placeholder_cover_url"`
	UserAgent           string   `toml:"user_agent,omitempty"`
	Timeout             Duration `toml:"timeout"`
	RequestsPerSecond   float64  `toml:"requests_per_second"`
}

type SearchConfig struct {
	Debounce       Duration `toml:"debounce"`
	MinQueryLength int      `toml:"min_query_length"`
	PageSize       int      `toml:"page_size"`
	RecentLimit    int      `toml:"recent_limit"`
}

type WebConfig struct {
	Host       string   `toml:"host"`
	Port       int      `toml:"port"`
	SessionTTL Duration `toml:"session_ttl"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// GetDefaultConfig returns a configuration with every default filled in.
func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}
	cfg := &Config{StorageDir: storageDir}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadConfig reads the TOML file at configPath. A missing file is not an
// error: the defaults are returned instead.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.StorageDir == "" {
		storageDir, err := GetDefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("getting default storage directory: %w", err)
		}
		config.StorageDir = storageDir
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = DefaultBaseURL
	}
	c.Catalog.BaseURL = strings.TrimRight(c.Catalog.BaseURL, "/")
	if c.Catalog.CoversURL == "" {
		c.Catalog.CoversURL = DefaultCoversURL
	}
	c.Catalog.CoversURL = strings.TrimRight(c.Catalog.CoversURL, "/")
	if c.Catalog.PlaceholderCoverURL == "" {
		c.Catalog.PlaceholderCoverURL = DefaultPlaceholder
	}
	if c.Catalog.Timeout.Duration == 0 {
		c.Catalog.Timeout = Duration{30 * time.Second}
	}
	if c.Search.Debounce.Duration == 0 {
		c.Search.Debounce = Duration{300 * time.Millisecond}
	}
	if c.Search.MinQueryLength == 0 {
		c.Search.MinQueryLength = 2
	}
	if c.Search.PageSize == 0 {
		c.Search.PageSize = PageSize
	}
	if c.Search.RecentLimit == 0 {
		c.Search.RecentLimit = 5
	}
	if c.Web.Host == "" {
		c.Web.Host = "localhost"
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8080
	}
	if c.Web.SessionTTL.Duration == 0 {
		c.Web.SessionTTL = Duration{30 * time.Minute}
	}
}

// Validate rejects settings the search pipeline cannot honour.
func (c *Config) Validate() error {
	if c.Search.PageSize != PageSize {
		return fmt.Errorf("search.page_size must be %d, got %d", PageSize, c.Search.PageSize)
	}
	if c.Search.MinQueryLength < 1 {
		return fmt.Errorf("search.min_query_length must be positive, got %d", c.Search.MinQueryLength)
	}
	if c.Search.RecentLimit < 1 {
		return fmt.Errorf("search.recent_limit must be positive, got %d", c.Search.RecentLimit)
	}
	if c.Catalog.RequestsPerSecond < 0 {
		return fmt.Errorf("catalog.requests_per_second cannot be negative")
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port out of range: %d", c.Web.Port)
	}
	return nil
}

// RecentDBPath is the sqlite file holding recent searches.
func (c *Config) RecentDBPath() string {
	return filepath.Join(c.StorageDir, "recent.db")
}

// Address returns host:port for the web server.
func (w WebConfig) Address() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	storageDir := c.StorageDir
	if storageDir == "" {
		var err error
		storageDir, err = GetDefaultStorageDir()
		if err != nil {
			return fmt.Errorf("getting default storage directory: %w", err)
		}
	}

	template := strings.Replace(configTemplate, "/home/user/.local/share/bookexplorer", storageDir, 1)
	return os.WriteFile(configPath, []byte(template), 0644)
}

// GetDefaultStorageDir returns the default storage directory for databases
func GetDefaultStorageDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(dataDir, "bookexplorer")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetConfigDir returns the configuration directory for bookexplorer
func GetConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "bookexplorer")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
