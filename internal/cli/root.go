// Package cli implements the dbal command line tool.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/dbal"
)

// app holds the state shared by the subcommands of one invocation.
type app struct {
	configPath  string
	dsn         string
	username    string
	password    string
	prefix      string
	schemaCache string
	debug       bool

	conn *dbal.Connection
}

// RootCmd returns the dbal command with all subcommands attached.
func RootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "dbal",
		Short: "Inspect and query MySQL, PostgreSQL and SQLite databases",
		Long: `dbal connects to a database through a PDO style DSN and offers
schema inspection, ad hoc statements and schema drift checks.

The connection is read from --config (a YAML file) and the connection
flags, which override the file:

  dbal --dsn "sqlite:./app.db" tables
  dbal --dsn "mysql:host=127.0.0.1;dbname=shop" --user root inspect users`,
		SilenceUsage: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "path of a YAML connection config")
	flags.StringVar(&a.dsn, "dsn", "", `data source name, e.g. "pgsql:host=localhost;dbname=app"`)
	flags.StringVarP(&a.username, "user", "u", "", "database user")
	flags.StringVarP(&a.password, "password", "p", "", "database password")
	flags.StringVar(&a.prefix, "prefix", "", "table prefix substituted for %")
	flags.StringVar(&a.schemaCache, "schema-cache", "", "file the schema cache is loaded from and saved to")
	flags.BoolVar(&a.debug, "debug", false, "log every statement to stderr")

	cmd.AddCommand(
		a.tablesCmd(),
		a.inspectCmd(),
		a.queryCmd(),
		a.execCmd(),
		a.snapshotCmd(),
		a.diffCmd(),
		a.validateCmd(),
	)
	return cmd
}

// config merges the config file with the connection flags.
func (a *app) config() (dbal.Config, error) {
	var cfg dbal.Config
	if a.configPath != "" {
		loaded, err := dbal.LoadConfig(a.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	for dst, v := range map[*string]string{
		&cfg.DSN:         a.dsn,
		&cfg.Username:    a.username,
		&cfg.Password:    a.password,
		&cfg.TablePrefix: a.prefix,
	} {
		if v != "" {
			*dst = v
		}
	}
	cfg.Debug = cfg.Debug || a.debug
	if cfg.DSN == "" {
		return cfg, errors.New("no data source: use --dsn or --config")
	}
	return cfg, nil
}

// run wraps a subcommand body with opening and closing the connection.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.open(cmd); err != nil {
			return err
		}
		defer func() { err = errors.Join(err, a.close()) }()
		return fn(cmd, args)
	}
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	conn, err := dbal.Open(cfg, dbal.WithLogger(log))
	if err != nil {
		return err
	}
	a.conn = conn
	if err := a.loadCache(); err != nil {
		conn.Close()
		return err
	}
	return nil
}

// close saves the schema cache and closes the connection.
func (a *app) close() error {
	err := errors.Join(a.saveCache(), a.conn.Close())
	a.conn = nil
	return err
}

// loadCache imports the schema cache file. A missing file is not an error,
// it is written when the command completes.
func (a *app) loadCache() error {
	if a.schemaCache == "" {
		return nil
	}
	f, err := os.Open(a.schemaCache)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load schema cache: %w", err)
	}
	defer f.Close()
	s, err := a.conn.Schema()
	if err != nil {
		return err
	}
	return s.Import(f)
}

func (a *app) saveCache() error {
	if a.schemaCache == "" {
		return nil
	}
	s, err := a.conn.Schema()
	if err != nil {
		return err
	}
	return writeSnapshot(a.schemaCache, s)
}
