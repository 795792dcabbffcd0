package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ptt/encoder"
	"ptt/hotkey"
	"ptt/transcriber"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "PTT_"

// Config holds user settings. API keys come from the environment only and
// are never read from or written to the YAML file.
type Config struct {
	Provider    string `yaml:"provider"`
	Endpoint    string `yaml:"endpoint"`
	Model       string `yaml:"model"`
	Language    string `yaml:"language"`
	Timeout     string `yaml:"timeout"`
	Format      string `yaml:"format"`
	Hotkey      string `yaml:"hotkey"`
	Settle      string `yaml:"settle_delay"`
	CharDelay   string `yaml:"char_delay"`
	Paste       bool   `yaml:"paste_fallback"`
	TUI         bool   `yaml:"tui"`
	Tray        bool   `yaml:"tray"`
	Beep        bool   `yaml:"beep"`
	MetricsAddr string `yaml:"metrics_addr"`
	Device      string `yaml:"device"`

	APIKey string `yaml:"-"`
}

func Defaults() Config {
	return Config{
		Provider:  transcriber.ProviderWhisper,
		Timeout:   "30s",
		Format:    encoder.FormatWAV,
		Hotkey:    hotkey.Default,
		Settle:    "150ms",
		CharDelay: "15ms",
		Paste:     true,
		TUI:       true,
		Tray:      true,
		Beep:      true,
	}
}

// DefaultPath is <user config dir>/ptt/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ptt", "config.yaml")
}

// Load applies, in order: defaults, the YAML file at path (a missing file is
// fine), PTT_* environment overrides and API keys. It returns the config,
// non-fatal warnings, and an error if the file exists but is unreadable.
func Load(path string) (Config, []string, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	cfg.LoadSecret()
	return cfg, cfg.Validate(), nil
}

func applyEnvOverrides(cfg *Config) {
	str := map[string]*string{
		"PROVIDER":     &cfg.Provider,
		"ENDPOINT":     &cfg.Endpoint,
		"MODEL":        &cfg.Model,
		"LANGUAGE":     &cfg.Language,
		"TIMEOUT":      &cfg.Timeout,
		"FORMAT":       &cfg.Format,
		"HOTKEY":       &cfg.Hotkey,
		"SETTLE_DELAY": &cfg.Settle,
		"CHAR_DELAY":   &cfg.CharDelay,
		"METRICS_ADDR": &cfg.MetricsAddr,
		"DEVICE":       &cfg.Device,
	}
	for name, field := range str {
		if v := strings.TrimSpace(os.Getenv(EnvPrefix + name)); v != "" {
			*field = v
		}
	}
	flags := map[string]*bool{
		"PASTE_FALLBACK": &cfg.Paste,
		"TUI":            &cfg.TUI,
		"TRAY":           &cfg.Tray,
		"BEEP":           &cfg.Beep,
	}
	for name, field := range flags {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*field = b
			}
		}
	}
}

// LoadSecret picks the API key matching the configured provider.
func (c *Config) LoadSecret() {
	switch c.Provider {
	case transcriber.ProviderOpenAI:
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	case transcriber.ProviderGroq:
		c.APIKey = os.Getenv("GROQ_API_KEY")
	case transcriber.ProviderDeepgram:
		c.APIKey = os.Getenv("DEEPGRAM_API_KEY")
	default:
		c.APIKey = os.Getenv(EnvPrefix + "API_KEY")
	}
}

// Validate repairs invalid values, falling back to defaults, and describes
// each repair.
func (c *Config) Validate() []string {
	var warnings []string
	def := Defaults()

	for _, d := range []struct {
		name  string
		value *string
	}{
		{"timeout", &c.Timeout},
		{"settle_delay", &c.Settle},
		{"char_delay", &c.CharDelay},
	} {
		if v, err := time.ParseDuration(*d.value); err != nil || v < 0 {
			warnings = append(warnings, fmt.Sprintf("invalid %s %q, using default", d.name, *d.value))
			switch d.name {
			case "timeout":
				*d.value = def.Timeout
			case "settle_delay":
				*d.value = def.Settle
			case "char_delay":
				*d.value = def.CharDelay
			}
		}
	}

	if c.Format != encoder.FormatWAV && c.Format != encoder.FormatFLAC {
		warnings = append(warnings, fmt.Sprintf("unknown format %q, using %s", c.Format, def.Format))
		c.Format = def.Format
	}
	if _, err := hotkey.ParseSpec(c.Hotkey); err != nil {
		warnings = append(warnings, fmt.Sprintf("%v, using %s", err, def.Hotkey))
		c.Hotkey = def.Hotkey
	}
	switch c.Provider {
	case transcriber.ProviderWhisper, transcriber.ProviderFake:
	case transcriber.ProviderOpenAI, transcriber.ProviderGroq, transcriber.ProviderDeepgram:
		if c.APIKey == "" {
			warnings = append(warnings, fmt.Sprintf("no API key for provider %s", c.Provider))
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown provider %q, using %s", c.Provider, def.Provider))
		c.Provider = def.Provider
		c.LoadSecret()
	}
	return warnings
}

func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func (c *Config) TimeoutDuration() time.Duration { return mustDuration(c.Timeout, 30*time.Second) }
func (c *Config) SettleDuration() time.Duration  { return mustDuration(c.Settle, 150*time.Millisecond) }
func (c *Config) CharDuration() time.Duration    { return mustDuration(c.CharDelay, 15*time.Millisecond) }

func (c *Config) Transcriber() transcriber.Config {
	return transcriber.Config{
		Provider: c.Provider,
		Endpoint: c.Endpoint,
		Model:    c.Model,
		Language: c.Language,
		APIKey:   c.APIKey,
	}
}
