package dbal

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/dbal/dialect"
	"github.com/syssam/dbal/dialect/sql"
	"github.com/syssam/dbal/dialect/sql/schema"
)

// Connection is a database handle bound to one dialect. It is not safe for
// concurrent use: the schema cache it owns has no locking.
type Connection struct {
	id      string
	driver  dialect.Driver
	stats   *sql.StatsDriver
	adapter *sql.Adapter
	builder *sql.Builder
	schema  *schema.Schema
	log     *slog.Logger

	prefix string
	debug  bool
	slow   time.Duration
}

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets the logger of the connection, its schema and its builder.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connection) {
		c.log = l
	}
}

// WithTablePrefix sets the prefix substituted for "%" in {{%table}} names.
func WithTablePrefix(prefix string) Option {
	return func(c *Connection) {
		c.prefix = prefix
	}
}

// WithDebug logs every statement at debug level.
func WithDebug() Option {
	return func(c *Connection) {
		c.debug = true
	}
}

// WithSlowThreshold logs statements slower than d at warn level.
func WithSlowThreshold(d time.Duration) Option {
	return func(c *Connection) {
		c.slow = d
	}
}

// Open opens a connection for cfg. Options are applied after the settings
// of cfg and override them.
func Open(cfg Config, opts ...Option) (*Connection, error) {
	src, err := cfg.source()
	if err != nil {
		return nil, err
	}
	drv, err := sql.Open(src.driver, src.dsn)
	if err != nil {
		return nil, fmt.Errorf("dbal: open %s: %w", src.dialect, err)
	}
	base := []Option{WithTablePrefix(cfg.TablePrefix), WithSlowThreshold(cfg.SlowThreshold)}
	if cfg.Debug {
		base = append(base, WithDebug())
	}
	c, err := newConnection(src.dialect, drv, append(base, opts...))
	if err != nil {
		drv.Close()
		return nil, err
	}
	return c, nil
}

// NewConnection wraps an opened database handle.
func NewConnection(dialectName string, db *stdsql.DB, opts ...Option) (*Connection, error) {
	if !dialect.Valid(dialectName) {
		return nil, fmt.Errorf("%w: %q", dialect.ErrUnknownDialect, dialectName)
	}
	return newConnection(dialectName, sql.OpenDB(dialectName, db), opts)
}

func newConnection(name string, drv dialect.Driver, opts []Option) (*Connection, error) {
	c := &Connection{id: uuid.NewString(), log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("conn_id", c.id)
	a, err := sql.NewAdapter(name, sql.WithTablePrefix(c.prefix))
	if err != nil {
		return nil, err
	}
	statsOpts := []sql.StatsOption{sql.WithSlowQueryLog(c.log)}
	if c.debug {
		statsOpts = append(statsOpts, sql.WithStatementLog(c.log))
	}
	if c.slow > 0 {
		statsOpts = append(statsOpts, sql.WithSlowThreshold(c.slow))
	}
	c.stats = sql.NewStatsDriver(drv, statsOpts...)
	c.driver = c.stats
	a.Bind(c.driver)
	b, err := sql.NewFactory(a, sql.WithLogger(c.log)).Builder()
	if err != nil {
		return nil, err
	}
	c.adapter, c.builder = a, b
	c.log.Debug("dbal: connection opened", "dialect", name, "table_prefix", c.prefix)
	return c, nil
}

// ID returns the identifier attached to the log records of the connection.
func (c *Connection) ID() string { return c.id }

// Dialect returns the dialect name.
func (c *Connection) Dialect() string { return c.adapter.Dialect() }

// Adapter returns the dialect adapter of the connection.
func (c *Connection) Adapter() *sql.Adapter { return c.adapter }

// QueryBuilder returns the builder rendering statements for the dialect.
func (c *Connection) QueryBuilder() *sql.Builder { return c.builder }

// Stats returns the statement counters of the connection.
func (c *Connection) Stats() sql.StatsSnapshot { return c.stats.QueryStats().Snapshot() }

// Schema returns the schema cache of the connection, creating it on first
// use.
func (c *Connection) Schema() (*schema.Schema, error) {
	if c.schema == nil {
		s, err := schema.New(c.adapter, schema.WithLogger(c.log))
		if err != nil {
			return nil, err
		}
		c.schema = s
	}
	return c.schema, nil
}

// invalidate drops tables from the schema cache, if one was created.
func (c *Connection) invalidate(tables []string) {
	if c.schema != nil && len(tables) > 0 {
		c.schema.Invalidate(tables...)
		c.log.Debug("dbal: schema invalidated", "tables", tables)
	}
}

// CreateCommand returns a command for the statement text and its named
// parameters. params may be nil.
func (c *Connection) CreateCommand(text string, params sql.Params) *Command {
	return newCommand(c, c.driver, text, params)
}

// Begin starts a transaction.
func (c *Connection) Begin(ctx context.Context) (*Tx, error) {
	tx, err := c.driver.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("dbal: begin: %w", err)
	}
	return &Tx{conn: c, tx: tx}, nil
}

// Transaction runs fn in a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (c *Connection) Transaction(ctx context.Context, fn func(*Tx) error) error {
	tx, err := c.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return &RollbackError{Err: err, Rollback: rerr}
		}
		return err
	}
	return tx.Commit()
}

// Close closes the underlying database handle.
func (c *Connection) Close() error {
	c.log.Debug("dbal: connection closed", "stats", c.Stats().String())
	return c.driver.Close()
}

// Tx is a transaction started by Connection.Begin.
type Tx struct {
	conn *Connection
	tx   dialect.Tx
	done bool
	// invalidates collects the tables of executed commands. They are
	// dropped from the schema cache on Commit.
	invalidates []string
}

// CreateCommand returns a command running inside the transaction.
func (tx *Tx) CreateCommand(text string, params sql.Params) *Command {
	cmd := newCommand(tx.conn, tx.tx, text, params)
	cmd.tx = tx
	return cmd
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	if err := tx.tx.Commit(); err != nil {
		return fmt.Errorf("dbal: commit: %w", err)
	}
	tx.conn.invalidate(tx.invalidates)
	return nil
}

// Rollback aborts the transaction.
func (tx *Tx) Rollback() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	if err := tx.tx.Rollback(); err != nil {
		return fmt.Errorf("dbal: rollback: %w", err)
	}
	return nil
}
