package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var DebugLog func(string, ...interface{})

type Config struct {
	DefaultSettings DefaultSettings `yaml:"default_settings"`
	Workspace       Workspace       `yaml:"workspace"`
	Probe           Probe           `yaml:"probe"`
	Enumeration     Enumeration     `yaml:"enumeration"`
	JSScraper       JSScraper       `yaml:"js_scraper"`
	Wayback         Wayback         `yaml:"wayback"`
	DirFuzz         DirFuzz         `yaml:"dir_fuzz"`
	Database        Database        `yaml:"database"`
	Elastic         Elastic         `yaml:"elastic"`
}

type DefaultSettings struct {
	Timeout int `yaml:"timeout"`
}

type Workspace struct {
	OutputDir string `yaml:"output_dir"`
}

type Probe struct {
	Timeout     int      `yaml:"timeout"`
	Concurrency int      `yaml:"concurrency"`
	RateLimit   float64  `yaml:"rate_limit"`
	UserAgents  []string `yaml:"user_agents"`
	Progress    bool     `yaml:"progress"`
}

type Enumeration struct {
	Crtsh       bool `yaml:"crtsh"`
	Subfinder   bool `yaml:"subfinder"`
	Assetfinder bool `yaml:"assetfinder"`
}

type JSScraper struct {
	Patterns        []string `yaml:"patterns"`
	ScriptDiscovery bool     `yaml:"script_discovery"`
}

type Wayback struct {
	CDXURL   string   `yaml:"cdx_url"`
	Timeout  int      `yaml:"timeout"`
	Patterns []string `yaml:"patterns"`
}

type DirFuzz struct {
	Wordlist      string `yaml:"wordlist"`
	Threads       int    `yaml:"threads"`
	MatchCodes    string `yaml:"match_codes"`
	FuzzLiveHosts bool   `yaml:"fuzz_live_hosts"`
}

type Database struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type Elastic struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Index    string `yaml:"index"`
}

// Default returns the settings used when no config file is present.
func Default() *Config {
	return &Config{
		DefaultSettings: DefaultSettings{Timeout: 15},
		Workspace:       Workspace{OutputDir: "output"},
		Probe: Probe{
			Timeout:     5,
			Concurrency: 0,
			Progress:    true,
		},
		Enumeration: Enumeration{
			Crtsh:       true,
			Subfinder:   true,
			Assetfinder: false,
		},
		JSScraper: JSScraper{
			Patterns:        []string{"apiKey", "token", "secret", "auth", "clientId", "key"},
			ScriptDiscovery: true,
		},
		Wayback: Wayback{
			CDXURL:  "https://web.archive.org/cdx/search/cdx",
			Timeout: 15,
		},
		DirFuzz: DirFuzz{
			Wordlist:   "common.txt",
			Threads:    40,
			MatchCodes: "200,301,302",
		},
		Database: Database{
			Host: "localhost",
			Port: 5432,
			User: "postgres",
		},
		Elastic: Elastic{
			Index: "recon_probe",
		},
	}
}

type Manager struct {
	config     *Config
	configPath string
}

func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
	}
}

// LoadConfig reads the YAML file on top of Default(). An explicit path that
// does not exist is an error; a missing auto-discovered file is not.
func (m *Manager) LoadConfig() error {
	explicit := m.configPath != ""
	if !explicit {
		m.configPath = m.findConfigFile()
	}

	config := Default()

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		if explicit {
			return fmt.Errorf("config file not found at %s", m.configPath)
		}
		if DebugLog != nil {
			DebugLog("no config file found, using built-in defaults")
		}
		m.config = config
		return nil
	}

	if DebugLog != nil {
		DebugLog("loading config from %s", m.configPath)
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := m.validateConfig(config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	m.config = config
	return nil
}

func (m *Manager) GetConfig() *Config {
	return m.config
}

func (m *Manager) ConfigPath() string {
	return m.configPath
}

func (m *Manager) findConfigFile() string {
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}

	if _, err := os.Stat("config/config.yaml"); err == nil {
		return "config/config.yaml"
	}

	if configPath := GetDefaultConfigPath(); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	return filepath.Join("config", "config.yaml")
}

func (m *Manager) validateConfig(config *Config) error {
	if config.DefaultSettings.Timeout <= 0 {
		return fmt.Errorf("default_settings.timeout must be greater than 0")
	}

	if config.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be greater than 0")
	}

	if config.Probe.Concurrency < 0 {
		return fmt.Errorf("probe.concurrency must not be negative")
	}

	if config.Probe.RateLimit < 0 {
		return fmt.Errorf("probe.rate_limit must not be negative")
	}

	if strings.TrimSpace(config.Workspace.OutputDir) == "" {
		return fmt.Errorf("workspace.output_dir must not be empty")
	}

	if config.DirFuzz.Threads <= 0 {
		return fmt.Errorf("dir_fuzz.threads must be greater than 0")
	}

	if config.Elastic.Enabled && config.Elastic.URL == "" {
		return fmt.Errorf("elastic.url is required when elastic is enabled")
	}

	return nil
}
