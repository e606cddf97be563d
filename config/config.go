package config

import (
	"os"
	"path/filepath"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/m4xw311/restgpt/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const dirName = ".restgpt"

// LLM selects the text-completion backend and its generation parameters.
type LLM struct {
	Provider      string  `yaml:"provider"`
	Model         string  `yaml:"model"`
	BaseURL       string  `yaml:"base_url"`
	Temperature   float64 `yaml:"temperature"`
	TopK          int     `yaml:"top_k"`
	TopP          float64 `yaml:"top_p"`
	MaxTokens     int     `yaml:"max_tokens"`
	ContextWindow int     `yaml:"context_window"`
}

// API describes the target REST service.
type API struct {
	BaseURL      string        `yaml:"base_url"`
	SpecPath     string        `yaml:"spec_path"`
	OnlyRequired bool          `yaml:"only_required"`
	MergeAllOf   bool          `yaml:"merge_allof"`
	Include      []string      `yaml:"include"`
	Exclude      []string      `yaml:"exclude"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Auth configures how bearer tokens for the target API are obtained.
// Exactly one of AccessToken, RefreshToken or client credentials is used,
// in that order of preference.
type Auth struct {
	AccessToken  string   `yaml:"access_token"`
	RefreshToken string   `yaml:"refresh_token"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	TokenURL     string   `yaml:"token_url"`
	Scopes       []string `yaml:"scopes"`
}

// Agent tunes the plan-act-observe loop.
type Agent struct {
	Scenario          string `yaml:"scenario"`
	MaxIterations     int    `yaml:"max_iterations"`
	SimpleParser      bool   `yaml:"simple_parser"`
	MaxResponseTokens int    `yaml:"max_response_tokens"`
}

// Secrets are only read from the environment, never from YAML.
type Secrets struct {
	OpenAIKey       string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL"`
	AnthropicKey    string `env:"ANTHROPIC_API_KEY"`
	GeminiKey       string `env:"GEMINI_API_KEY"`
	OllamaHost      string `env:"OLLAMA_HOST"`
	APIAccessToken  string `env:"RESTGPT_ACCESS_TOKEN"`
	APIClientID     string `env:"RESTGPT_CLIENT_ID"`
	APIClientSecret string `env:"RESTGPT_CLIENT_SECRET"`
	APIRefreshToken string `env:"RESTGPT_REFRESH_TOKEN"`
}

type Config struct {
	LLM      LLM    `yaml:"llm"`
	API      API    `yaml:"api"`
	Auth     Auth   `yaml:"auth"`
	Agent    Agent  `yaml:"agent"`
	LogDir   string `yaml:"log_dir"`
	LogLevel string `yaml:"log_level"`

	Secrets Secrets `yaml:"-"`
}

// Default returns the configuration used when no file overrides a field.
// Generation parameters mirror the low-temperature settings that keep the
// planner output deterministic enough to parse.
func Default() *Config {
	return &Config{
		LLM: LLM{
			Provider:      "mock",
			Temperature:   0.1,
			TopK:          2,
			TopP:          0.2,
			MaxTokens:     512,
			ContextWindow: 8192,
		},
		API: API{
			MergeAllOf: true,
			Timeout:    30 * time.Second,
		},
		Agent: Agent{
			Scenario:          "spotify",
			MaxIterations:     10,
			MaxResponseTokens: 1500,
		},
		LogDir:   filepath.Join("logs", "restgpt"),
		LogLevel: "info",
	}
}

// LoadConfig loads configuration from the user's home directory and the current
// working directory, with the latter taking precedence. An explicit path, if
// given, is applied last. Secrets are then read from the environment, after
// loading a .env file from the working directory when one exists.
func LoadConfig(fs afero.Fs, explicitPath string) (*Config, error) {
	cfg := Default()

	home, err := os.UserHomeDir()
	if err == nil {
		if err := mergeIfExists(fs, filepath.Join(home, dirName, "config.yaml"), cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading user config")
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	if err := mergeIfExists(fs, filepath.Join(wd, dirName, "config.yaml"), cfg); err != nil {
		return nil, errors.Wrapf(err, "error loading project config")
	}

	if explicitPath != "" {
		if err := loadFromFile(fs, explicitPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading config %s", explicitPath)
		}
	}

	vars, err := environment(fs, filepath.Join(wd, ".env"), os.Environ())
	if err != nil {
		return nil, errors.Wrapf(err, "error loading .env")
	}
	if err := env.Unmarshal(vars, &cfg.Secrets); err != nil {
		return nil, errors.Wrapf(err, "error reading environment")
	}
	cfg.applySecrets()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeIfExists(fs afero.Fs, path string, cfg *Config) error {
	exists, err := afero.Exists(fs, path)
	if err != nil || !exists {
		return err
	}
	return loadFromFile(fs, path, cfg)
}

func loadFromFile(fs afero.Fs, path string, cfg *Config) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites only the fields present in the YAML, so later
	// files refine earlier ones.
	return yaml.Unmarshal(data, cfg)
}

// environment merges the variables of the .env file at path under environ,
// so the real environment wins. The process environment is left untouched.
func environment(fs afero.Fs, path string, environ []string) (env.EnvSet, error) {
	vars, err := env.EnvironToEnvSet(environ)
	if err != nil {
		return nil, err
	}
	exists, err := afero.Exists(fs, path)
	if err != nil || !exists {
		return vars, err
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dotenv, err := godotenv.Parse(f)
	if err != nil {
		return nil, err
	}
	for k, v := range dotenv {
		if _, ok := vars[k]; !ok {
			vars[k] = v
		}
	}
	return vars, nil
}

// applySecrets copies environment credentials into the explicit config
// sections when the YAML left them empty.
func (c *Config) applySecrets() {
	if c.Auth.AccessToken == "" {
		c.Auth.AccessToken = c.Secrets.APIAccessToken
	}
	if c.Auth.ClientID == "" {
		c.Auth.ClientID = c.Secrets.APIClientID
	}
	if c.Auth.ClientSecret == "" {
		c.Auth.ClientSecret = c.Secrets.APIClientSecret
	}
	if c.Auth.RefreshToken == "" {
		c.Auth.RefreshToken = c.Secrets.APIRefreshToken
	}
	if c.LLM.BaseURL == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.BaseURL = c.Secrets.OpenAIBaseURL
		case "ollama":
			c.LLM.BaseURL = c.Secrets.OllamaHost
		}
	}
}

// Validate rejects settings the agent cannot run with and fills zero values
// with defaults.
func (c *Config) Validate() error {
	def := Default()
	if c.Agent.MaxIterations <= 0 {
		c.Agent.MaxIterations = def.Agent.MaxIterations
	}
	if c.Agent.MaxResponseTokens <= 0 {
		c.Agent.MaxResponseTokens = def.Agent.MaxResponseTokens
	}
	if c.LLM.ContextWindow <= 0 {
		c.LLM.ContextWindow = def.LLM.ContextWindow
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = def.API.Timeout
	}
	if c.Agent.Scenario == "" {
		return errors.New("agent.scenario must be set")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature %v out of range [0, 2]", c.LLM.Temperature)
	}
	if c.LLM.TopP < 0 || c.LLM.TopP > 1 {
		return errors.New("llm.top_p %v out of range [0, 1]", c.LLM.TopP)
	}
	switch c.LLM.Provider {
	case "mock", "openai", "anthropic", "gemini", "bedrock", "ollama":
	default:
		return errors.New("unknown llm.provider %q", c.LLM.Provider)
	}
	if c.LLM.Provider != "mock" && c.LLM.Model == "" {
		return errors.New("llm.model must be set for provider %q", c.LLM.Provider)
	}
	return nil
}
