package cli

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/truthpost/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage TruthPost configuration",
	Long: `Manage TruthPost configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (TRUTHPOST_*, e.g. TRUTHPOST_STORAGE_DSN)
3. Config file (~/.truthpost/config.yaml)
4. Defaults

.env and .env.secret in the working directory are loaded into the
environment first.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults and environment)\n\n")
		}

		redactSecrets(cfg)

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Print(string(yamlData))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.truthpost/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configDir := home + "/.truthpost"
		configPath := configDir + "/config.yaml"

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'truthpost config show' to view it, or delete it first to recreate", configPath)
		}

		if err := os.MkdirAll(configDir, 0o755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}

		yamlData, err := yaml.Marshal(model.DefaultConfig())
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		var b strings.Builder
		b.WriteString("# TruthPost Configuration File\n")
		b.WriteString("#\n")
		b.WriteString("# Configuration hierarchy (highest to lowest priority):\n")
		b.WriteString("#   1. CLI flags\n")
		b.WriteString("#   2. Environment variables (TRUTHPOST_*)\n")
		b.WriteString("#   3. This config file\n")
		b.WriteString("#   4. Built-in defaults\n\n")
		b.Write(yamlData)
		b.WriteString("\n# Secrets are better kept in the environment or .env.secret:\n")
		b.WriteString("#   OPENAI_API_KEY=sk-...\n")
		b.WriteString("#   ANTHROPIC_API_KEY=sk-ant-...\n")
		b.WriteString("#   DATABASE_URL=postgres://...\n")
		b.WriteString("#   TRUTHPOST_SERVER_JWT_SECRET=...\n")
		b.WriteString("#   TRUTHPOST_NOTIFY_DISCORD_TOKEN=...\n")

		if err := os.WriteFile(configPath, []byte(b.String()), 0o600); err != nil {
			return fmt.Errorf("error writing config: %w", err)
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	applyProviderEnv(cfg)
	return cfg, nil
}

// applyProviderEnv fills secrets from the conventional variable names when
// the TRUTHPOST_* form is not set.
func applyProviderEnv(cfg *model.Config) {
	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.LLM.BaseURL == "" && strings.EqualFold(cfg.LLM.Provider, "ollama") {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = os.Getenv("DATABASE_URL")
	}
}

// registerDefaults makes every config key known to viper with its default
// value, so TRUTHPOST_* variables reach Unmarshal and an unset flag never
// masks a default.
func registerDefaults() {
	setDefaults(reflect.ValueOf(*model.DefaultConfig()), "")
}

func setDefaults(v reflect.Value, prefix string) {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct {
			setDefaults(v.Field(i), key)
			continue
		}
		viper.SetDefault(key, v.Field(i).Interface())
	}
}

func redactSecrets(cfg *model.Config) {
	for _, s := range []*string{&cfg.LLM.APIKey, &cfg.Storage.DSN, &cfg.Server.JWTSecret, &cfg.Notify.DiscordToken, &cfg.Cache.RedisURL} {
		if *s != "" {
			*s = "********"
		}
	}
}
