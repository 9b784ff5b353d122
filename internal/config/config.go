package config

import "fmt"

type Config struct {
	Server  ServerConfig
	LLM     LLMConfig
	Storage StorageConfig
	Jobs    JobsConfig
	QAGen   QAGenConfig
	API     APIConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port     int
	MaxConns int
}

type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type StorageConfig struct {
	DataDir string
}

type JobsConfig struct {
	Workers int
}

type QAGenConfig struct {
	MaxContextLength int
	FilterThreshold  float64
}

type APIConfig struct {
	// Token guards the HTTP API when non-empty. Empty disables auth.
	Token string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:     8000,
			MaxConns: 256,
		},
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Jobs: JobsConfig{
			Workers: 4,
		},
		QAGen: QAGenConfig{
			MaxContextLength: 4000,
			FilterThreshold:  0.7,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/qasmith/config.json, then applies QASMITH_* environment
// overrides. Secrets (LLM API key, API token) are never read from the file,
// only from the environment.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.LLM.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: LLM API key. " +
			"Set it via environment variable QASMITH_LLM_API_KEY")
	}

	return cfg, nil
}
