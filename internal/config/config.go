// Package config defines the application configuration, loaded by the
// CLI from a YAML file and NSYC_* environment variables via viper.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	LLM           LLM           `mapstructure:"llm"`
	Fetcher       Fetcher       `mapstructure:"fetcher"`
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	MCP           MCP           `mapstructure:"mcp"`
	Paths         Paths         `mapstructure:"paths"`
	Artists       []Artist      `mapstructure:"artists"`
}

// LLM holds the OpenAI-compatible extraction endpoint configuration.
type LLM struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Fetcher holds page fetching configuration.
type Fetcher struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	Delay     time.Duration `mapstructure:"delay"`
	UserAgent string        `mapstructure:"user_agent"`
}

// Elasticsearch holds the optional event index configuration.
type Elasticsearch struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Paths holds the on-disk locations of persisted state.
type Paths struct {
	State   string `mapstructure:"state"`
	Catalog string `mapstructure:"catalog"`
	Logs    string `mapstructure:"logs"`
}

// Artist is one tracked artist with its monitored sources.
type Artist struct {
	Name    string   `mapstructure:"name"`
	Sources []Source `mapstructure:"sources"`
}

// Source is one listing page to monitor for an artist.
type Source struct {
	ID             string   `mapstructure:"id"`
	URL            string   `mapstructure:"url"`
	FilterKeywords []string `mapstructure:"filter_keywords"`
	MaxDetailPages int      `mapstructure:"max_detail_pages"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		LLM: LLM{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 120 * time.Second,
		},
		Fetcher: Fetcher{
			Timeout:   30 * time.Second,
			Delay:     1 * time.Second,
			UserAgent: "nsyc-fetch/1.0",
		},
		Elasticsearch: Elasticsearch{
			Enabled:   false,
			Addresses: []string{"http://localhost:9200"},
			Index:     "nsyc-events",
		},
		MCP: MCP{
			Name:    "nsyc-fetch",
			Version: "1.0.0",
		},
		Paths: Paths{
			State:   "data/fetch_state.json",
			Catalog: "data/events.json",
			Logs:    "logs",
		},
	}
}
