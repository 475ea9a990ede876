package config

// Config holds lattice configuration.
// Stored at: ~/.lattice/config.yaml
type Config struct {
	Producers  map[string]ProducerCfg `mapstructure:"producers" yaml:"producers"`
	Defaults   DefaultsCfg            `mapstructure:"defaults" yaml:"defaults"`
	Generation GenerationCfg          `mapstructure:"generation" yaml:"generation"`
	Server     ServerCfg              `mapstructure:"server" yaml:"server"`
	Store      StoreCfg               `mapstructure:"store" yaml:"store"`
}

// ProducerCfg configures a text producer.
type ProducerCfg struct {
	Type      string `mapstructure:"type" yaml:"type"`             // "gemini", "openai"
	Model     string `mapstructure:"model" yaml:"model"`           // Model name
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`     // Override for self-hosted endpoints
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per minute
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default selections.
type DefaultsCfg struct {
	Producer   string `mapstructure:"producer" yaml:"producer"`       // Default producer name
	MaxWorkers int    `mapstructure:"max_workers" yaml:"max_workers"` // Max concurrent generation jobs
}

// GenerationCfg tunes the generation requests.
type GenerationCfg struct {
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	ReasoningBudget int     `mapstructure:"reasoning_budget" yaml:"reasoning_budget"`
	EnableSearch    bool    `mapstructure:"enable_search" yaml:"enable_search"`
}

// ServerCfg holds HTTP server settings.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// StoreCfg holds document store settings.
type StoreCfg struct {
	// Path is the SQLite database file. Empty means ~/.lattice/lattice.db.
	Path string `mapstructure:"path" yaml:"path"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Producers: map[string]ProducerCfg{
			"gemini": {
				Type:      "gemini",
				Model:     "gemini-2.5-flash",
				APIKey:    "${GEMINI_API_KEY}",
				RateLimit: 10,
				Enabled:   true,
			},
			"openai": {
				Type:    "openai",
				Model:   "gpt-4o",
				APIKey:  "${OPENAI_API_KEY}",
				Enabled: false,
			},
		},
		Defaults: DefaultsCfg{
			Producer:   "gemini",
			MaxWorkers: 4,
		},
		Generation: GenerationCfg{
			Temperature:     0.7,
			ReasoningBudget: 4096,
			EnableSearch:    true,
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8585",
		},
	}
}

// GetProducer returns a producer config by name.
func (c *Config) GetProducer(name string) (ProducerCfg, bool) {
	cfg, ok := c.Producers[name]
	return cfg, ok
}

// EnabledProducers returns all enabled producers.
func (c *Config) EnabledProducers() map[string]ProducerCfg {
	result := make(map[string]ProducerCfg)
	for name, cfg := range c.Producers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
