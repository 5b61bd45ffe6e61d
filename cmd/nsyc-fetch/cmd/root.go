package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/nsyc/nsyc-fetch/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "nsyc-fetch",
	Short: "nsyc-fetch: an artist event and ticket-phase tracker",
	Long: `nsyc-fetch monitors artist news pages, extracts concerts, releases and
ticket sale phases with an LLM, and maintains a catalog with stable event
IDs across runs.

Commands:
  fetch   Check sources and update the event catalog
  events  List tracked events
  search  Full-text search over the event index
  serve   Start the MCP server for event queries`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	// Start with defaults
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/nsyc-fetch")
		viper.AddConfigPath(".")
	}

	// Environment variable overrides
	// NSYC_LLM_API_KEY -> llm.api_key
	viper.SetEnvPrefix("NSYC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicitly bind nested env vars
	viper.BindEnv("llm.base_url", "NSYC_LLM_BASE_URL")
	viper.BindEnv("llm.api_key", "NSYC_LLM_API_KEY")
	viper.BindEnv("llm.model", "NSYC_LLM_MODEL")
	viper.BindEnv("fetcher.delay", "NSYC_FETCHER_DELAY")
	viper.BindEnv("fetcher.user_agent", "NSYC_FETCHER_USER_AGENT")
	viper.BindEnv("elasticsearch.enabled", "NSYC_ELASTICSEARCH_ENABLED")
	viper.BindEnv("elasticsearch.addresses", "NSYC_ELASTICSEARCH_ADDRESSES")
	viper.BindEnv("elasticsearch.index", "NSYC_ELASTICSEARCH_INDEX")
	viper.BindEnv("elasticsearch.username", "NSYC_ELASTICSEARCH_USERNAME")
	viper.BindEnv("elasticsearch.password", "NSYC_ELASTICSEARCH_PASSWORD")
	viper.BindEnv("mcp.name", "NSYC_MCP_NAME")
	viper.BindEnv("mcp.version", "NSYC_MCP_VERSION")
	viper.BindEnv("paths.state", "NSYC_PATHS_STATE")
	viper.BindEnv("paths.catalog", "NSYC_PATHS_CATALOG")
	viper.BindEnv("paths.logs", "NSYC_PATHS_LOGS")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	// Unmarshal into struct (merges config file with defaults)
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Handle special case: addresses as comma-separated string from env
	if addrs := os.Getenv("NSYC_ELASTICSEARCH_ADDRESSES"); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}
}
