// Package postgres implements rdbms.Client for PostgreSQL, adapted from
// the connection-pool shape of the teacher's internal/storage/postgres.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/thewisecoder/dbrief/internal/rdbms"
	"github.com/thewisecoder/dbrief/internal/rdbms/dialectutil"
)

// Client implements rdbms.Client over database/sql with the lib/pq driver.
type Client struct {
	cfg rdbms.ConnConfig
	db  *sql.DB
}

// New constructs an unconnected Client for cfg.
func New(cfg rdbms.ConnConfig) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) dsn() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.cfg.Host, c.cfg.Port, c.cfg.User, c.cfg.Password, c.cfg.Name)
}

func (c *Client) Connect(ctx context.Context) error {
	db, err := sql.Open("postgres", c.dsn())
	if err != nil {
		return fmt.Errorf("postgres: open: %w", err)
	}
	maxOpen := c.cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(c.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("postgres: ping: %w", err)
	}
	c.db = db
	return nil
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Client) Dialect() rdbms.Dialect { return rdbms.DialectPostgres }

func (c *Client) Execute(ctx context.Context, stmt string, args ...any) (int64, error) {
	res, err := c.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("postgres: execute: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (c *Client) Select(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: select: %w", err)
	}
	return rows, nil
}

func (c *Client) Count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count: %w", err)
	}
	return n, nil
}

func (c *Client) BulkInsert(ctx context.Context, table string, columns []string, in <-chan []any, batchSize int) (int64, error) {
	return dialectutil.BatchedInsert(ctx, c.db, dialectutil.PlaceholderDollar, table, columns, in, batchSize)
}

func (c *Client) Sync(ctx context.Context, plan rdbms.SyncPlan, source rdbms.Client) (rdbms.SyncResult, error) {
	return dialectutil.GenericSync(ctx, c.db, dialectutil.PlaceholderDollar, plan, source)
}

func (c *Client) StreamLOB(ctx context.Context, query string, args []any, chunkSize int) (io.ReadCloser, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: stream_lob: %w", err)
	}
	return dialectutil.NewRowsLOBReader(rows, chunkSize), nil
}

func (c *Client) MigrateLOB(ctx context.Context, source rdbms.Client, table, column string, ref rdbms.RefSpec, partition rdbms.Partition, chunkSize int) (int64, error) {
	return dialectutil.GenericMigrateLOB(ctx, c.db, dialectutil.PlaceholderDollar, source, table, column, ref, partition, chunkSize)
}

func (c *Client) ReflectSchema(ctx context.Context, schemaName string, flags rdbms.ReflectFlags) (*rdbms.Schema, error) {
	schema, err := dialectutil.ReflectInformationSchema(ctx, c.db, rdbms.DialectPostgres, schemaName, flags)
	if err != nil {
		return nil, err
	}
	if err := c.fillIdentity(ctx, schema); err != nil {
		if flags.RelaxReflection {
			schema.Warning = fmt.Sprintf("identity metadata unavailable: %v", err)
			return schema, nil
		}
		return nil, err
	}
	return schema, nil
}

// fillIdentity enriches reflected columns with Postgres GENERATED ... AS
// IDENTITY metadata (spec §4.A step 4's maxvalue/cache inputs), which
// information_schema.columns carries in identity_generation/
// identity_maximum/identity_cache but dialectutil's ANSI-only reflection
// does not read.
func (c *Client) fillIdentity(ctx context.Context, schema *rdbms.Schema) error {
	for ti, table := range schema.Tables {
		rows, err := c.db.QueryContext(ctx, `
			SELECT column_name, identity_maximum, identity_cache
			FROM information_schema.columns
			WHERE table_schema = $1 AND table_name = $2 AND identity_generation IS NOT NULL`,
			schema.Name, table.Name)
		if err != nil {
			return fmt.Errorf("postgres: identity reflect %s: %w", table.Name, err)
		}
		for rows.Next() {
			var name string
			var maxVal, cache sql.NullInt64
			if err := rows.Scan(&name, &maxVal, &cache); err != nil {
				rows.Close()
				return err
			}
			for ci, col := range table.Columns {
				if col.Name != name {
					continue
				}
				schema.Tables[ti].Columns[ci].Identity.IsIdentity = true
				if maxVal.Valid {
					schema.Tables[ti].Columns[ci].Identity.MaxValue = maxVal.Int64
					schema.Tables[ti].Columns[ci].Identity.MaxValueSet = true
				}
				if cache.Valid {
					schema.Tables[ti].Columns[ci].Identity.Cache = cache.Int64
				}
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
	}
	return nil
}

func (c *Client) ViewDDL(ctx context.Context, schemaName, name string) (string, error) {
	var def string
	row := c.db.QueryRowContext(ctx, "SELECT pg_get_viewdef(format('%I.%I', $1, $2)::regclass, true)", schemaName, name)
	if err := row.Scan(&def); err != nil {
		return "", fmt.Errorf("postgres: view_ddl: %w", err)
	}
	return fmt.Sprintf("CREATE VIEW %s.%s AS\n%s", schemaName, name, def), nil
}
