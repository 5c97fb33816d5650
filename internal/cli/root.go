package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/carepath/carepath/internal/model"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "carepath",
	Short: "Carepath - voice triage and care placement",
	Long: `Carepath turns a spoken symptom description into an urgency tier and a
short, explainable list of nearby places that can actually help.

It does not diagnose. A fixed rule table argues for a tier, a category
gate keeps emergencies pointed at emergency care, and every ranked place
carries the reasons it was chosen.

Live place data comes from the Korean public data portal (data.go.kr);
a curated CSV dataset keeps the engine answering when the portal is down.`,
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
	Long:  `Display the version number and build information for Carepath.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("carepath v0.2.1")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.carepath/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in the config file, a local .env, and ENV variables
func initConfig() {
	// A local .env carries the data.go.kr and OpenAI keys in development
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".carepath"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match CAREPATH_*
	viper.SetEnvPrefix("CAREPATH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig materializes the effective configuration: built-in defaults,
// then the config file, then environment variables for the secrets.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	cfg.Output.Verbose = verbose || cfg.Output.Verbose

	// Portal keys are issued URL-encoded; NormalizeServiceKey decodes once
	// so the HTTP client does not double-encode them.
	if key := model.NormalizeServiceKey(os.Getenv("DATA_GO_KR_SERVICE_KEY")); key != "" {
		cfg.Places.ServiceKey = key
	} else if key := model.NormalizeServiceKey(os.Getenv("DATAGOKR_API_KEY")); key != "" {
		cfg.Places.ServiceKey = key
	}

	if cfg.Assist.Provider != "" && cfg.Assist.APIKey == "" {
		cfg.Assist.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg, nil
}
