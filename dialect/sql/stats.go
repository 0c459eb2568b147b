package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/dbal/dialect"
)

// Statement kinds reported in a Statement.
const (
	KindQuery = "query"
	KindExec  = "exec"
)

// Statement describes one statement run through a StatsDriver.
type Statement struct {
	Dialect  string
	Kind     string
	Query    string
	Args     []any
	Duration time.Duration
	// TxID identifies the transaction the statement ran in. Empty outside
	// a transaction.
	TxID string
	Err  error
}

// LogAttrs returns the statement as log record attributes.
func (s Statement) LogAttrs() []any {
	attrs := []any{"dialect", s.Dialect, "query", s.Query, "args", len(s.Args), "duration", s.Duration}
	if s.TxID != "" {
		attrs = append(attrs, "tx_id", s.TxID)
	}
	if s.Err != nil {
		attrs = append(attrs, "error", s.Err)
	}
	return attrs
}

// QueryStats holds the statement counters of a StatsDriver.
type QueryStats struct {
	queries, execs, errors, slow atomic.Int64
	total, max                   atomic.Int64 // nanoseconds
	txs, rollbacks               atomic.Int64
}

func (s *QueryStats) add(st Statement, slow bool) {
	if st.Kind == KindQuery {
		s.queries.Add(1)
	} else {
		s.execs.Add(1)
	}
	if st.Err != nil {
		s.errors.Add(1)
	}
	if slow {
		s.slow.Add(1)
	}
	d := int64(st.Duration)
	s.total.Add(d)
	for {
		cur := s.max.Load()
		if d <= cur || s.max.CompareAndSwap(cur, d) {
			return
		}
	}
}

// Snapshot returns the current counter values.
func (s *QueryStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Queries:   s.queries.Load(),
		Execs:     s.execs.Load(),
		Errors:    s.errors.Load(),
		Slow:      s.slow.Load(),
		Duration:  time.Duration(s.total.Load()),
		Max:       time.Duration(s.max.Load()),
		Txs:       s.txs.Load(),
		Rollbacks: s.rollbacks.Load(),
	}
}

// Reset sets all counters to zero.
func (s *QueryStats) Reset() {
	for _, c := range []*atomic.Int64{&s.queries, &s.execs, &s.errors, &s.slow, &s.total, &s.max, &s.txs, &s.rollbacks} {
		c.Store(0)
	}
}

// StatsSnapshot is a copy of QueryStats taken at one point in time.
type StatsSnapshot struct {
	Queries   int64
	Execs     int64
	Errors    int64
	Slow      int64
	Duration  time.Duration
	Max       time.Duration
	Txs       int64
	Rollbacks int64
}

// Avg returns the mean statement duration.
func (s StatsSnapshot) Avg() time.Duration {
	if n := s.Queries + s.Execs; n > 0 {
		return s.Duration / time.Duration(n)
	}
	return 0
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("queries=%d execs=%d errors=%d slow=%d avg=%s max=%s txs=%d rollbacks=%d",
		s.Queries, s.Execs, s.Errors, s.Slow, s.Avg(), s.Max, s.Txs, s.Rollbacks)
}

// SlowQueryHook is called for every statement slower than the threshold.
type SlowQueryHook func(context.Context, Statement)

// StatsDriver counts the statements run through a driver. It reports slow
// statements to its hooks and, with WithStatementLog, logs every statement
// at debug level.
type StatsDriver struct {
	dialect.Driver
	stats *QueryStats
	hooks []SlowQueryHook
	debug *slog.Logger

	mu        sync.RWMutex
	threshold time.Duration
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the slow statement threshold. Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.threshold = d
	}
}

// WithSlowQueryHook adds a slow statement callback.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.hooks = append(s.hooks, hook)
	}
}

// WithSlowQueryLog reports slow statements to l at warn level.
func WithSlowQueryLog(l *slog.Logger) StatsOption {
	return WithSlowQueryHook(func(ctx context.Context, st Statement) {
		l.WarnContext(ctx, "dbal: slow statement", st.LogAttrs()...)
	})
}

// WithStatementLog logs every statement and transaction boundary to l at
// debug level.
func WithStatementLog(l *slog.Logger) StatsOption {
	return func(s *StatsDriver) {
		s.debug = l
	}
}

// NewStatsDriver wraps drv with statistics collection.
//
//	drv := sql.NewStatsDriver(sql.OpenDB(dialect.MySQL, db),
//		sql.WithSlowThreshold(200*time.Millisecond),
//		sql.WithSlowQueryLog(slog.Default()),
//	)
//	fmt.Println(drv.QueryStats().Snapshot())
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:    drv,
		stats:     &QueryStats{},
		threshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the live counters.
func (d *StatsDriver) QueryStats() *QueryStats { return d.stats }

// SlowThreshold returns the current slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.threshold
}

// SetSlowThreshold updates the slow statement threshold.
func (d *StatsDriver) SetSlowThreshold(t time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.threshold = t
}

// Query runs a query and records it.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	return d.run(ctx, KindQuery, "", query, args, func() error {
		return d.Driver.Query(ctx, query, args, v)
	})
}

// Exec runs a statement and records it.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	return d.run(ctx, KindExec, "", query, args, func() error {
		return d.Driver.Exec(ctx, query, args, v)
	})
}

func (d *StatsDriver) run(ctx context.Context, kind, txID, query string, args any, exec func() error) error {
	start := time.Now()
	err := exec()
	argv, _ := args.([]any)
	st := Statement{
		Dialect:  d.Dialect(),
		Kind:     kind,
		Query:    query,
		Args:     argv,
		Duration: time.Since(start),
		TxID:     txID,
		Err:      err,
	}
	slow := st.Duration > d.SlowThreshold()
	d.stats.add(st, slow)
	if d.debug != nil {
		d.debug.DebugContext(ctx, "dbal: "+kind, st.LogAttrs()...)
	}
	if slow {
		for _, hook := range d.hooks {
			hook(ctx, st)
		}
	}
	return err
}

// logTx logs a transaction boundary.
func (d *StatsDriver) logTx(ctx context.Context, msg, id string, err error) {
	if d.debug == nil {
		return
	}
	attrs := []any{"dialect", d.Dialect(), "tx_id", id}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	d.debug.DebugContext(ctx, "dbal: "+msg, attrs...)
}

// Tx starts a transaction whose statements are recorded under a fresh
// transaction id.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	id := uuid.NewString()
	tx, err := d.Driver.Tx(ctx)
	d.logTx(ctx, "begin transaction", id, err)
	if err != nil {
		return nil, err
	}
	d.stats.txs.Add(1)
	return &StatsTx{Tx: tx, ID: id, driver: d}, nil
}

// StatsTx is a transaction of a StatsDriver.
type StatsTx struct {
	dialect.Tx
	// ID is attached to the records of the statements run in the
	// transaction.
	ID     string
	driver *StatsDriver
}

// Query runs a query in the transaction and records it.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	return tx.driver.run(ctx, KindQuery, tx.ID, query, args, func() error {
		return tx.Tx.Query(ctx, query, args, v)
	})
}

// Exec runs a statement in the transaction and records it.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	return tx.driver.run(ctx, KindExec, tx.ID, query, args, func() error {
		return tx.Tx.Exec(ctx, query, args, v)
	})
}

// Commit commits the transaction.
func (tx *StatsTx) Commit() error {
	err := tx.Tx.Commit()
	tx.driver.logTx(context.Background(), "commit transaction", tx.ID, err)
	return err
}

// Rollback aborts the transaction.
func (tx *StatsTx) Rollback() error {
	err := tx.Tx.Rollback()
	tx.driver.stats.rollbacks.Add(1)
	tx.driver.logTx(context.Background(), "rollback transaction", tx.ID, err)
	return err
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
)
