package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mj1618/screen-macro/internal/config"
	"github.com/mj1618/screen-macro/internal/logging"
	"github.com/mj1618/screen-macro/internal/output"
	"github.com/mj1618/screen-macro/internal/version"
)

var (
	cfgFile string

	// appConfig is loaded in PersistentPreRunE before any command runs.
	appConfig = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "screen-macro",
	Short: "Drive a visual macro against an on-screen application",
	Long: `screen-macro runs a fixed sequence of steps against one application window:
for each step it finds the step's reference image on screen, clicks it and
performs the step's side effect, cycling through the accounts of a CSV ledger.

Failures escalate from per-step retries, to skipping a designated step, to
restarting the whole sequence after killing the target process.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits 1 on error.
func Execute() {
	err := rootCmd.Execute()
	_ = logging.Close()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml, then "+config.ConfigFile()+")")
	rootCmd.PersistentFlags().String("format", "yaml", "Output format: yaml, json")
	rootCmd.PersistentFlags().Bool("pretty", false, "Pretty-print JSON output")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "Also write JSON log lines to this file")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.file", rootCmd.PersistentFlags().Lookup("log-file"))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		appConfig = cfg

		if err := logging.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
			return err
		}

		// Use the root persistent flag directly to avoid conflicts with
		// subcommand local flags (e.g. screenshot --format png/jpg).
		format, _ := rootCmd.PersistentFlags().GetString("format")
		f, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		output.OutputFormat = f
		output.PrettyOutput, _ = rootCmd.PersistentFlags().GetBool("pretty")
		return nil
	}
}

// initConfig reads the config file and environment into viper.
func initConfig() {
	config.SetDefaults()
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer)
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(config.ConfigDir())
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	}
}

// bindFlags binds command-local flags to config keys so that flags win over
// file and environment values.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for flag, key := range keys {
		_ = viper.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
}
