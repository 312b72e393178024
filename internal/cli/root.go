package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags
var Version = "v0.1.0"

var (
	cfgFile    string
	verbose    bool
	jsonOutput bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "truthpost",
	Short: "TruthPost - community claim fact-checking",
	Long: `TruthPost records factual claims together with a source URL and
fact-checks them on request.

Resolving a claim fetches its source, asks a language model whether the
source supports the claim, and commits the verdict (true, false or
partially_true) only when several independent evaluations agree exactly.
Every resolved claim earns its submitter one reputation point.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("truthpost %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.truthpost/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("storage-driver", "", "claim store (memory, postgres, mysql)")
	rootCmd.PersistentFlags().String("storage-dsn", "", "claim store connection string")
	rootCmd.PersistentFlags().String("llm-provider", "", "LLM provider (openai, anthropic, ollama, mock)")
	rootCmd.PersistentFlags().String("llm-model", "", "LLM model name")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("storage.driver", rootCmd.PersistentFlags().Lookup("storage-driver"))
	_ = viper.BindPFlag("storage.dsn", rootCmd.PersistentFlags().Lookup("storage-dsn"))
	_ = viper.BindPFlag("llm.provider", rootCmd.PersistentFlags().Lookup("llm-provider"))
	_ = viper.BindPFlag("llm.model", rootCmd.PersistentFlags().Lookup("llm-model"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads .env files, the config file and ENV variables
func initConfig() {
	// .env.secret first: godotenv never overrides a variable already set
	for _, f := range []string{".env.secret", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", f, err)
		}
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.truthpost")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match TRUTHPOST_*
	viper.SetEnvPrefix("TRUTHPOST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	registerDefaults()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
