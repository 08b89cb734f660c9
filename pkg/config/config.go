package config

import (
	"encoding/json"
	"os"
)

type Config struct {
	App       AppConfig                 `json:"app"`
	Memory    MemoryConfig              `json:"memory"`
	Skills    SkillsConfig              `json:"skills"`
	Gateways  map[string]GatewayConfig  `json:"gateways"`
	Providers map[string]ProviderConfig `json:"providers"`
	Comms     CommsConfig               `json:"comms"`
	Voice     VoiceConfig               `json:"voice"`
	Server    ServerConfig              `json:"server"`
}

type AppConfig struct {
	Name      string `json:"name"`
	Owner     string `json:"owner"`
	Workspace string `json:"workspace"`
}

type MemoryConfig struct {
	Path string `json:"path"`
}

type SkillsConfig struct {
	Dir string `json:"dir"`
}

type GatewayConfig struct {
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
	Enabled bool   `json:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty"`
	Enabled bool   `json:"enabled"`
}

// CommsConfig holds outbound email settings. Environment variables
// GHOSTHAND_SMTP_USER / GHOSTHAND_SMTP_PASS override the file values.
type CommsConfig struct {
	SMTPHost string `json:"smtp_host"`
	SMTPPort int    `json:"smtp_port"`
	SMTPUser string `json:"smtp_user"`
	SMTPPass string `json:"smtp_pass"`
	From     string `json:"from"`
}

// VoiceConfig names the external commands used for speaker verification
// and spoken status updates. Both are optional.
type VoiceConfig struct {
	VerifyCommand []string `json:"verify_command"`
	SpeakCommand  []string `json:"speak_command"`
}

type ServerConfig struct {
	Port    int  `json:"port"`
	Enabled bool `json:"enabled"`
}

// Load reads and decodes the JSON config at path, then fills in
// defaults for anything left unset.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config populated with defaults only, used when no
// config file is present on disk.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "ghosthand"
	}
	if c.App.Owner == "" {
		c.App.Owner = "william"
	}
	if c.App.Workspace == "" {
		c.App.Workspace = "workspace"
	}
	if c.Memory.Path == "" {
		c.Memory.Path = "data/memory.db"
	}
	if c.Skills.Dir == "" {
		c.Skills.Dir = "skills"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5169
	}
}

// SMTPUser returns the SMTP username, preferring the environment override.
func (c *Config) SMTPUser() string {
	if v := os.Getenv("GHOSTHAND_SMTP_USER"); v != "" {
		return v
	}
	return c.Comms.SMTPUser
}

// SMTPPass returns the SMTP password, preferring the environment override.
func (c *Config) SMTPPass() string {
	if v := os.Getenv("GHOSTHAND_SMTP_PASS"); v != "" {
		return v
	}
	return c.Comms.SMTPPass
}

// GetDefaultProvider returns the first enabled provider.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetGateway returns the named gateway config if enabled.
func (c *Config) GetGateway(name string) (GatewayConfig, bool) {
	g, ok := c.Gateways[name]
	if ok && g.Enabled && g.Token != "" {
		return g, true
	}
	return GatewayConfig{}, false
}
