package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete screen-macro configuration
type Config struct {
	Run     RunConfig     `mapstructure:"run"`
	Paths   PathsConfig   `mapstructure:"paths"`
	Timing  TimingConfig  `mapstructure:"timing"`
	Detect  DetectConfig  `mapstructure:"detect"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// RunConfig controls the step sequence and its escalation budget
type RunConfig struct {
	// Window is the title of the window to focus before each action (empty = none)
	Window string `mapstructure:"window"`
	// Process is the executable name of the target application, killed on restart and after the final step
	Process string `mapstructure:"process"`
	// Threshold is the minimum match confidence in [0,1]
	Threshold float64 `mapstructure:"threshold"`
	// MaxRetries is the number of retries per step before escalating (0 = unlimited)
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the wait between attempts of the same step
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// MaxRestarts is how many whole-sequence restarts one account may use
	MaxRestarts int `mapstructure:"max_restarts"`
	// Iterations caps the number of accounts processed in one run (0 = until the ledger is exhausted)
	Iterations int `mapstructure:"iterations"`
	// DoneMarker is written to the ledger's completion column on success
	DoneMarker string `mapstructure:"done_marker"`
	// Paste enters credentials through the clipboard instead of typing them
	Paste bool `mapstructure:"paste"`
}

// PathsConfig locates the run's input files
type PathsConfig struct {
	// Templates is the directory holding stepN reference images
	Templates string `mapstructure:"templates"`
	// Ledger is the account CSV file
	Ledger string `mapstructure:"ledger"`
	// StepsFile optionally overrides the built-in step behaviour table (YAML)
	StepsFile string `mapstructure:"steps_file"`
}

// TimingConfig holds the fixed pacing delays between actions
type TimingConfig struct {
	PreClick      time.Duration `mapstructure:"pre_click"`
	BetweenSteps  time.Duration `mapstructure:"between_steps"`
	AfterSkip     time.Duration `mapstructure:"after_skip"`
	RestartWait   time.Duration `mapstructure:"restart_wait"`
	KillWait      time.Duration `mapstructure:"kill_wait"`
	BetweenRuns   time.Duration `mapstructure:"between_runs"`
	CredentialGap time.Duration `mapstructure:"credential_gap"`
	KeyDelay      time.Duration `mapstructure:"key_delay"`
	ClearSettle   time.Duration `mapstructure:"clear_settle"`
	FocusSettle   time.Duration `mapstructure:"focus_settle"`
}

// DetectConfig tunes the template matcher
type DetectConfig struct {
	// PyramidMinPixels is the search cost (screen px * template px) above which a coarse pass runs first
	PyramidMinPixels int64 `mapstructure:"pyramid_min_pixels"`
	// Workers bounds concurrent correlation bands (0 = GOMAXPROCS)
	Workers int `mapstructure:"workers"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
	// File additionally writes JSON lines to this path when set
	File string `mapstructure:"file"`
}

// Default returns a Config with the values the macro was tuned with
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Window:      "",
			Process:     "wwm.exe",
			Threshold:   0.8,
			MaxRetries:  10,
			RetryDelay:  2 * time.Second,
			MaxRestarts: 3,
			Iterations:  1,
			DoneMarker:  "done",
		},
		Paths: PathsConfig{
			Templates: "templates",
			Ledger:    filepath.Join("data", "account.csv"),
			StepsFile: "",
		},
		Timing: TimingConfig{
			PreClick:      500 * time.Millisecond,
			BetweenSteps:  500 * time.Millisecond,
			AfterSkip:     500 * time.Millisecond,
			RestartWait:   3 * time.Second,
			KillWait:      2 * time.Second,
			BetweenRuns:   1 * time.Second,
			CredentialGap: 300 * time.Millisecond,
			KeyDelay:      20 * time.Millisecond,
			ClearSettle:   100 * time.Millisecond,
			FocusSettle:   200 * time.Millisecond,
		},
		Detect: DetectConfig{
			PyramidMinPixels: 200_000_000,
			Workers:          0,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("run.window", defaults.Run.Window)
	viper.SetDefault("run.process", defaults.Run.Process)
	viper.SetDefault("run.threshold", defaults.Run.Threshold)
	viper.SetDefault("run.max_retries", defaults.Run.MaxRetries)
	viper.SetDefault("run.retry_delay", defaults.Run.RetryDelay)
	viper.SetDefault("run.max_restarts", defaults.Run.MaxRestarts)
	viper.SetDefault("run.iterations", defaults.Run.Iterations)
	viper.SetDefault("run.done_marker", defaults.Run.DoneMarker)
	viper.SetDefault("run.paste", defaults.Run.Paste)

	viper.SetDefault("paths.templates", defaults.Paths.Templates)
	viper.SetDefault("paths.ledger", defaults.Paths.Ledger)
	viper.SetDefault("paths.steps_file", defaults.Paths.StepsFile)

	viper.SetDefault("timing.pre_click", defaults.Timing.PreClick)
	viper.SetDefault("timing.between_steps", defaults.Timing.BetweenSteps)
	viper.SetDefault("timing.after_skip", defaults.Timing.AfterSkip)
	viper.SetDefault("timing.restart_wait", defaults.Timing.RestartWait)
	viper.SetDefault("timing.kill_wait", defaults.Timing.KillWait)
	viper.SetDefault("timing.between_runs", defaults.Timing.BetweenRuns)
	viper.SetDefault("timing.credential_gap", defaults.Timing.CredentialGap)
	viper.SetDefault("timing.key_delay", defaults.Timing.KeyDelay)
	viper.SetDefault("timing.clear_settle", defaults.Timing.ClearSettle)
	viper.SetDefault("timing.focus_settle", defaults.Timing.FocusSettle)

	viper.SetDefault("detect.pyramid_min_pixels", defaults.Detect.PyramidMinPixels)
	viper.SetDefault("detect.workers", defaults.Detect.Workers)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "screen-macro")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".screen-macro"
	}
	return filepath.Join(home, ".config", "screen-macro")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// EnvPrefix is the prefix for environment overrides, e.g. SCREEN_MACRO_RUN_THRESHOLD.
const EnvPrefix = "SCREEN_MACRO"

// EnvKeyReplacer maps nested keys to environment variable names.
var EnvKeyReplacer = strings.NewReplacer(".", "_")
