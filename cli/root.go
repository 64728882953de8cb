package cli

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"jira-issue-sync/config"
	"jira-issue-sync/jira"
	"jira-issue-sync/logging"
	"jira-issue-sync/sync"
)

var (
	cfgFile   string
	envFile   string
	projectID string
	dbPath    string
	version   = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "jira-sync",
	Short: "Incremental Jira issue synchronization",
	Long: `jira-sync pulls the issues of one Jira project that changed since the
last run into a local SQLite database. Re-running a sync is always safe: issues
already stored are left as they are.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "TOML config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file of KEY=value lines loaded into the environment")
	rootCmd.PersistentFlags().StringVar(&projectID, "project", "", "Jira project key (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")

	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newSnapshotCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("jira-sync version %s\n", version)
		},
	}
}

// loadConfig loads and validates the configuration with flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile, envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if projectID != "" {
		cfg.Jira.Project = projectID
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// env is everything a command needs to talk to Jira and the store.
type env struct {
	cfg    *config.Config
	log    zerolog.Logger
	db     *sync.DB
	syncer *sync.Synchronizer
	closer io.Closer
}

func (e *env) Close() {
	if e.db != nil {
		e.db.Close()
	}
	if e.closer != nil {
		e.closer.Close()
	}
}

func setup(withJira bool) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	e := &env{cfg: cfg, log: logger, closer: closer}

	db, err := sync.NewDB(cfg.Database.Path)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	e.db = db

	var source sync.IssueSource
	if withJira {
		creds, err := config.ResolveCredentials(true)
		if err != nil {
			e.Close()
			return nil, err
		}
		client := jira.NewClient(cfg.Jira.BaseURL, jira.Credentials{
			Username: creds.Username,
			Password: creds.Password,
			Token:    creds.Token,
		}, cfg.Jira.HTTPTimeout, logger)
		client.PageSize = cfg.Jira.PageSize
		client.Mapper.PointsField = cfg.Jira.PointsField
		source = client
	}
	e.syncer = sync.NewSynchronizer(source, db, cfg.Jira.Project, cfg.Jira.InitialSince, logger)
	return e, nil
}
