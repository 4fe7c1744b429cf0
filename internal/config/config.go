package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/aryannaik/cellar/internal/store"
)

// Config holds all cellar configuration.
type Config struct {
	Port      string `yaml:"port"`
	DataDir   string `yaml:"data_dir"`
	StaticDir string `yaml:"static_dir"`

	GitHub  GitHubConfig  `yaml:"github"`
	Auth    AuthConfig    `yaml:"auth"`
	AI      AIConfig      `yaml:"ai"`
	Logging LoggingConfig `yaml:"logging"`
}

// GitHubConfig configures the repository used as the remote backend.
type GitHubConfig struct {
	Owner   string `yaml:"owner"`
	Repo    string `yaml:"repo"`
	Branch  string `yaml:"branch"`
	Token   string `yaml:"token"`
	Dir     string `yaml:"dir"`
	APIURL  string `yaml:"api_url"`
	Timeout string `yaml:"timeout"`
}

// AuthConfig configures the PIN gate. No PINs disables the gate.
type AuthConfig struct {
	Pins []string `yaml:"pins"`
	Salt string   `yaml:"salt"`
}

// AIConfig configures the LLM-backed helpers.
type AIConfig struct {
	Provider    string `yaml:"provider"` // openai, anthropic, ollama
	APIKey      string `yaml:"api_key"`
	Model       string `yaml:"model"`
	VisionModel string `yaml:"vision_model"`
	BaseURL     string `yaml:"base_url"`
}

var defaultModels = map[string][2]string{
	"openai":    {"gpt-4o-mini", "gpt-4o"},
	"anthropic": {"claude-sonnet-4-5", "claude-sonnet-4-5"},
	"ollama":    {"llama3.2", "llava"},
}

// Models returns the text and vision models, falling back to the provider's
// defaults for anything unset.
func (a AIConfig) Models() (text, vision string) {
	d := defaultModels[a.Provider]
	text, vision = a.Model, a.VisionModel
	if text == "" {
		text = d[0]
	}
	if vision == "" {
		vision = d[1]
	}
	return text, vision
}

// Enabled reports whether enough is configured to build a generator. Ollama
// runs locally and needs no key.
func (a AIConfig) Enabled() bool {
	switch a.Provider {
	case "ollama":
		return true
	case "openai", "anthropic":
		return a.APIKey != ""
	}
	return false
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:      "8990",
		DataDir:   "data",
		StaticDir: "static",
		GitHub: GitHubConfig{
			Branch:  "main",
			Dir:     "data",
			APIURL:  "https://api.github.com",
			Timeout: "30s",
		},
		AI: AIConfig{
			Provider: "openai",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, a .env
// file in the working directory and the process environment, in that order.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	_ = godotenv.Load()
	cfg.applyEnvOverrides()

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	setFromEnv(&c.Port, "PORT")
	setFromEnv(&c.DataDir, "DATA_DIR")
	setFromEnv(&c.StaticDir, "STATIC_DIR")

	setFromEnv(&c.GitHub.Owner, "GITHUB_OWNER")
	setFromEnv(&c.GitHub.Repo, "GITHUB_REPO")
	setFromEnv(&c.GitHub.Branch, "GITHUB_BRANCH")
	setFromEnv(&c.GitHub.Token, "GITHUB_TOKEN")
	setFromEnv(&c.GitHub.Dir, "GITHUB_DIR")
	setFromEnv(&c.GitHub.APIURL, "GITHUB_API_URL")
	setFromEnv(&c.GitHub.Timeout, "GITHUB_TIMEOUT")

	if v := os.Getenv("CELLAR_PINS"); v != "" {
		c.Auth.Pins = splitList(v)
	}
	setFromEnv(&c.Auth.Salt, "CELLAR_PIN_SALT")

	setFromEnv(&c.AI.Provider, "AI_PROVIDER")
	setFromEnv(&c.AI.Model, "AI_MODEL")
	setFromEnv(&c.AI.VisionModel, "AI_VISION_MODEL")
	// Provider-specific variables first, the generic ones win.
	switch c.AI.Provider {
	case "openai":
		setFromEnv(&c.AI.APIKey, "OPENAI_API_KEY")
	case "anthropic":
		setFromEnv(&c.AI.APIKey, "ANTHROPIC_API_KEY")
	case "ollama":
		setFromEnv(&c.AI.BaseURL, "OLLAMA_HOST")
	}
	setFromEnv(&c.AI.APIKey, "AI_API_KEY")
	setFromEnv(&c.AI.BaseURL, "AI_BASE_URL")

	setFromEnv(&c.Logging.Level, "LOG_LEVEL")
	setFromEnv(&c.Logging.Format, "LOG_FORMAT")
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if _, err := c.GitHubTimeout(); err != nil {
		return errors.Wrap(err, "github.timeout")
	}
	if len(c.Auth.Pins) > 0 && c.Auth.Salt == "" {
		return errors.New("auth.salt is required when PINs are configured")
	}
	switch c.AI.Provider {
	case "", "openai", "anthropic", "ollama":
	default:
		return errors.Errorf("unknown ai.provider %q", c.AI.Provider)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return errors.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}

// PartialGitHub reports credentials that are set but not enough to enable
// the remote backend, which is usually a typo in the environment.
func (c *Config) PartialGitHub() bool {
	set := 0
	for _, v := range []string{c.GitHub.Owner, c.GitHub.Repo, c.GitHub.Token} {
		if v != "" {
			set++
		}
	}
	return set > 0 && set < 3
}

// GitHubTimeout parses the remote call timeout. Empty means no timeout.
func (c *Config) GitHubTimeout() (time.Duration, error) {
	if c.GitHub.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(c.GitHub.Timeout)
}

// Store returns the persistence settings.
func (c *Config) Store() store.Config {
	timeout, _ := c.GitHubTimeout()
	return store.Config{
		DataDir:   c.DataDir,
		Owner:     c.GitHub.Owner,
		Repo:      c.GitHub.Repo,
		Token:     c.GitHub.Token,
		Branch:    c.GitHub.Branch,
		RemoteDir: c.GitHub.Dir,
		APIURL:    c.GitHub.APIURL,
		Timeout:   timeout,
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
