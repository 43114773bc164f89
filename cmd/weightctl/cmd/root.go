package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	weightdb "github.com/the-dev-tools/dev-tools/packages/weight/pkg/db"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/service/sweight"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/service/sweightpg"
)

const (
	ConfigFileName      = ".weightctl"
	ConfigFileExtension = ".yaml"
	EnvPrefix           = "WEIGHTCTL"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// app carries the state one command invocation shares between its hooks.
type app struct {
	v       *viper.Viper
	cfgFile string
	logger  *slog.Logger
	svc     *sweight.ItemService
	closeDB func() error
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		log.Fatalf("error executing root command: %s", err)
	}
}

// NewRootCmd builds the command tree with its own viper instance.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{v: viper.New()})
}

func newRootCmd(a *app) *cobra.Command {

	rootCmd := &cobra.Command{
		Use:   "weightctl",
		Short: "Keep named items in dense 1..N order inside groups",
		Long: `weightctl stores items in a local database and keeps every group ordered by
a dense weight. Items can be added, listed, moved up or down and repaired when
concurrent writers left duplicate weights behind.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.weightctl.yaml)")
	flags.String("db", "", "sqlite database file (default is $HOME/.weightctl.db)")
	flags.String("driver", "", "database driver: sqlite or postgres")
	flags.String("dsn", "", "postgres connection string")
	flags.String("log-level", "", "log level: DEBUG, INFO, WARNING or ERROR")
	flags.StringP("output", "o", "table", "output format: table, json or yaml")
	for key, flag := range map[string]string{
		"db.path":   "db",
		"db.driver": "driver",
		"db.dsn":    "dsn",
		"log.level": "log-level",
		"output":    "output",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			log.Fatal(err)
		}
	}

	rootCmd.AddCommand(
		newAddCmd(a),
		newListCmd(a),
		newMoveCmd(a, "up"),
		newMoveCmd(a, "down"),
		newRepairCmd(a),
		newCheckCmd(a),
		newNextCmd(a),
		newRmCmd(a),
		newVersionCmd(),
	)
	for _, sub := range rootCmd.Commands() {
		a.closeAfter(sub)
	}
	return rootCmd
}

// closeAfter closes the database when cmd's RunE returns, whether or not it
// failed. Cobra skips post-run hooks after an error.
func (a *app) closeAfter(cmd *cobra.Command) {
	run := cmd.RunE
	if run == nil {
		return
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		defer func() { err = errors.Join(err, a.close()) }()
		return run(cmd, args)
	}
}

func (a *app) initConfig(cmd *cobra.Command) error {
	home, err := homedir.Dir()
	if err != nil {
		return fmt.Errorf("error finding home directory: %w", err)
	}

	a.v.SetDefault("db.driver", DriverSQLite)
	a.v.SetDefault("db.path", filepath.Join(home, ConfigFileName+".db"))
	a.v.SetDefault("log.level", "ERROR")
	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	a.v.SetConfigType(strings.TrimPrefix(ConfigFileExtension, "."))
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(home)
		a.v.SetConfigName(ConfigFileName)
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	a.logger = newLogger(cmd.ErrOrStderr(), a.v.GetString("log.level"))
	return nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		logLevel = slog.LevelDebug
	case "INFO":
		logLevel = slog.LevelInfo
	case "WARNING", "WARN":
		logLevel = slog.LevelWarn
	default:
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// service opens the configured database on first use.
func (a *app) service(cmd *cobra.Command) (*sweight.ItemService, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	ctx := cmd.Context()

	switch driver := a.v.GetString("db.driver"); driver {
	case DriverSQLite:
		db, err := weightdb.Open(ctx, weightdb.Config{Mode: weightdb.LOCAL, Path: a.v.GetString("db.path")})
		if err != nil {
			return nil, err
		}
		svc, err := sweight.New(db, sweight.DefaultConfig(), a.logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		a.svc, a.closeDB = svc, db.Close
	case DriverPostgres:
		dsn := a.v.GetString("db.dsn")
		if dsn == "" {
			return nil, errors.New("db.dsn is required for the postgres driver")
		}
		db, err := sweightpg.Open(ctx, dsn, sweightpg.Config())
		if err != nil {
			return nil, err
		}
		svc, err := db.NewService(sweightpg.Config(), a.logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		a.svc, a.closeDB = svc, db.Close
	default:
		return nil, fmt.Errorf("unknown db.driver %q", driver)
	}
	a.logger.DebugContext(ctx, "database opened", "driver", a.v.GetString("db.driver"))
	return a.svc, nil
}

func (a *app) close() error {
	if a.closeDB == nil {
		return nil
	}
	err := a.closeDB()
	a.svc, a.closeDB = nil, nil
	return err
}
