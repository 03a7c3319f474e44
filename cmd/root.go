package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/pulse/internal/health"
	"github.com/joescharf/pulse/internal/locale"
	"github.com/joescharf/pulse/internal/output"
	"github.com/joescharf/pulse/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool

	// nowFunc is the scoring clock, replaceable in tests.
	nowFunc = time.Now
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Pulse - health scoring for projects and workspaces",
	Long: `pulse scores the health of every project in a workspace from its tasks,
milestones, issues, sprints and activity, ranks which projects need
attention now, and rolls everything up into one workspace score.

Running bare 'pulse' shows the workspace overview.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return workspaceRun()
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return closeStore()
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/pulse/config.yaml)")
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".config", "pulse"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PULSE")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	setDefaults()

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every config key with its default value.
func setDefaults() {
	dir, _ := configDirFunc()

	viper.SetDefault("state_dir", dir)
	viper.SetDefault("db_path", filepath.Join(dir, "pulse.db"))
	viper.SetDefault("port", 8080)
	viper.SetDefault("locale", locale.DefaultLang)
	viper.SetDefault("locale_dir", "")
	viper.SetDefault("health.timezone", "")
	viper.SetDefault("spotlight.limit", 5)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// The store is opened lazily so config and version run without a db.
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	ui.VerboseLog("Using database %s", dbPath)

	dataStore = s
	return dataStore, nil
}

func closeStore() error {
	if dataStore == nil {
		return nil
	}
	err := dataStore.Close()
	dataStore = nil
	return err
}

// newScorer builds a scorer for the configured timezone.
func newScorer() (*health.Scorer, error) {
	loc := time.Local
	if tz := viper.GetString("health.timezone"); tz != "" {
		var err error
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("health.timezone: %w", err)
		}
	}
	return &health.Scorer{Clock: nowFunc, Location: loc}, nil
}

// loadCatalog loads the configured message catalog.
func loadCatalog() (*locale.Catalog, error) {
	return locale.Load(viper.GetString("locale"), viper.GetString("locale_dir"))
}
