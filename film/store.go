package film

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/filmgraph/config"
	"github.com/c360/filmgraph/errors"
	"github.com/c360/filmgraph/metric"
)

// Conn is a storage connection scoped to one request. Callers must Release it.
type Conn interface {
	// ListFilms returns films in table order, bounded by page.
	ListFilms(ctx context.Context, page Page) ([]Film, error)

	// GetFilm returns the film with the given id, or nil when none exists.
	GetFilm(ctx context.Context, id uuid.UUID) (*Film, error)

	// CreateFilm inserts a film and returns the stored row.
	CreateFilm(ctx context.Context, input CreateFilm) (*Film, error)

	// Release returns the connection to its pool. It is safe to call more than once.
	Release()
}

// Acquirer hands out connections.
type Acquirer interface {
	Acquire(ctx context.Context) (Conn, error)
}

const filmColumns = "id, created_at, updated_at, title, release_year, summary, runtime_mins"

const (
	listFilmsSQL  = `SELECT ` + filmColumns + ` FROM films LIMIT $1 OFFSET $2`
	getFilmSQL    = `SELECT ` + filmColumns + ` FROM films WHERE id = $1`
	createFilmSQL = `INSERT INTO films (title, release_year, summary, runtime_mins)
VALUES ($1, $2, $3, $4)
RETURNING ` + filmColumns
)

// Pool is a pgx connection pool serving Conns.
type Pool struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
	metrics        *metric.Metrics
}

// NewPool parses cfg and opens a pool. The pool connects lazily, so callers
// that need to fail fast should Ping it.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, metrics *metric.Metrics) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Pool", "NewPool", "database url")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, errors.WrapFatal(fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err),
			"Pool", "NewPool", "parse database url")
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrStorageUnavailable, err),
			"Pool", "NewPool", "create pool")
	}

	return &Pool{
		pool:           pool,
		acquireTimeout: cfg.AcquireTimeoutDuration(),
		metrics:        metrics,
	}, nil
}

// Acquire takes a connection from the pool, waiting at most the configured
// acquire timeout.
func (p *Pool) Acquire(ctx context.Context) (Conn, error) {
	start := time.Now()

	acquireCtx := ctx
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	conn, err := p.pool.Acquire(acquireCtx)
	p.metrics.RecordStorage("acquire", err, time.Since(start))
	if err != nil {
		return nil, errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrStorageUnavailable, err),
			"Pool", "Acquire", "acquire connection")
	}

	return newConn(conn, conn.Release, p.metrics), nil
}

// Ping verifies the database is reachable.
func (p *Pool) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrStorageUnavailable, err),
			"Pool", "Ping", "ping database")
	}
	return nil
}

// Close closes every connection in the pool.
func (p *Pool) Close() {
	p.pool.Close()
}

// RegisterMetrics publishes pool occupancy gauges.
func (p *Pool) RegisterMetrics(registrar metric.MetricsRegistrar) error {
	gauges := []struct {
		name string
		help string
		fn   func() float64
	}{
		{"total_conns", "Connections currently open in the pool",
			func() float64 { return float64(p.pool.Stat().TotalConns()) }},
		{"acquired_conns", "Connections currently checked out of the pool",
			func() float64 { return float64(p.pool.Stat().AcquiredConns()) }},
		{"idle_conns", "Idle connections in the pool",
			func() float64 { return float64(p.pool.Stat().IdleConns()) }},
	}

	for _, g := range gauges {
		opts := prometheus.GaugeOpts{
			Namespace: "filmgraph",
			Subsystem: "storage_pool",
			Name:      g.name,
			Help:      g.help,
		}
		if err := registrar.RegisterGaugeFunc("storage_pool", g.name, opts, g.fn); err != nil {
			return err
		}
	}
	return nil
}

// querier is the subset of a pgx connection the SQL needs.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgConn struct {
	q       querier
	release func()
	metrics *metric.Metrics
}

func newConn(q querier, release func(), metrics *metric.Metrics) *pgConn {
	return &pgConn{q: q, release: release, metrics: metrics}
}

func (c *pgConn) Release() {
	if c.release != nil {
		c.release()
		c.release = nil
	}
}

func (c *pgConn) ListFilms(ctx context.Context, page Page) (films []Film, err error) {
	defer c.observe("list_films", time.Now(), &err)

	if err := page.Validate(); err != nil {
		return nil, err
	}

	rows, err := c.q.Query(ctx, listFilmsSQL, page.Limit, page.Offset)
	if err != nil {
		return nil, queryError(err, "ListFilms", "query films")
	}

	films, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Film, error) {
		var f Film
		err := scanFilm(row, &f)
		return f, err
	})
	if err != nil {
		return nil, queryError(err, "ListFilms", "scan films")
	}
	if films == nil {
		films = []Film{}
	}
	return films, nil
}

func (c *pgConn) GetFilm(ctx context.Context, id uuid.UUID) (film *Film, err error) {
	defer c.observe("get_film", time.Now(), &err)

	var f Film
	if err := scanFilm(c.q.QueryRow(ctx, getFilmSQL, id), &f); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, queryError(err, "GetFilm", "query film")
	}
	return &f, nil
}

func (c *pgConn) CreateFilm(ctx context.Context, input CreateFilm) (film *Film, err error) {
	defer c.observe("create_film", time.Now(), &err)

	if err := input.Validate(); err != nil {
		return nil, err
	}

	var f Film
	row := c.q.QueryRow(ctx, createFilmSQL, input.Title, input.ReleaseYear, input.Summary, input.RuntimeMins)
	if err := scanFilm(row, &f); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, queryError(err, "CreateFilm", "insert film")
	}
	return &f, nil
}

func (c *pgConn) observe(operation string, start time.Time, err *error) {
	c.metrics.RecordStorage(operation, *err, time.Since(start))
}

func scanFilm(row pgx.Row, f *Film) error {
	return row.Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt, &f.Title, &f.ReleaseYear, &f.Summary, &f.RuntimeMins)
}

func queryError(err error, method, action string) error {
	return errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrStorageQuery, err), "FilmStore", method, action)
}
