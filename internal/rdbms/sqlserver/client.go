// Package sqlserver implements rdbms.Client for Microsoft SQL Server using
// go-mssqldb, grounded on other_examples sqldef's adapter/mssql/mssql.go
// and ariga-atlas's sql/mssql/migrate.go catalog-query style.
package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/thewisecoder/dbrief/internal/rdbms"
	"github.com/thewisecoder/dbrief/internal/rdbms/dialectutil"
)

// Client implements rdbms.Client over database/sql with go-mssqldb.
type Client struct {
	cfg rdbms.ConnConfig
	db  *sql.DB
}

// New constructs an unconnected Client for cfg.
func New(cfg rdbms.ConnConfig) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) dsn() string {
	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
		c.cfg.User, c.cfg.Password, c.cfg.Host, c.cfg.Port, c.cfg.Name)
}

func (c *Client) Connect(ctx context.Context) error {
	db, err := sql.Open("sqlserver", c.dsn())
	if err != nil {
		return fmt.Errorf("sqlserver: open: %w", err)
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
		return fmt.Errorf("sqlserver: ping: %w", err)
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

func (c *Client) Dialect() rdbms.Dialect { return rdbms.DialectSQLServer }

func (c *Client) Execute(ctx context.Context, stmt string, args ...any) (int64, error) {
	res, err := c.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlserver: execute: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (c *Client) Select(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlserver: select: %w", err)
	}
	return rows, nil
}

func (c *Client) Count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlserver: count: %w", err)
	}
	return n, nil
}

func (c *Client) BulkInsert(ctx context.Context, table string, columns []string, in <-chan []any, batchSize int) (int64, error) {
	return dialectutil.BatchedInsert(ctx, c.db, dialectutil.PlaceholderAt, table, columns, in, batchSize)
}

func (c *Client) Sync(ctx context.Context, plan rdbms.SyncPlan, source rdbms.Client) (rdbms.SyncResult, error) {
	return dialectutil.GenericSync(ctx, c.db, dialectutil.PlaceholderAt, plan, source)
}

func (c *Client) StreamLOB(ctx context.Context, query string, args []any, chunkSize int) (io.ReadCloser, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlserver: stream_lob: %w", err)
	}
	return dialectutil.NewRowsLOBReader(rows, chunkSize), nil
}

func (c *Client) MigrateLOB(ctx context.Context, source rdbms.Client, table, column string, ref rdbms.RefSpec, partition rdbms.Partition, chunkSize int) (int64, error) {
	return dialectutil.GenericMigrateLOB(ctx, c.db, dialectutil.PlaceholderAt, source, table, column, ref, partition, chunkSize)
}

func (c *Client) ReflectSchema(ctx context.Context, schemaName string, flags rdbms.ReflectFlags) (*rdbms.Schema, error) {
	schema, err := dialectutil.ReflectInformationSchema(ctx, c.db, rdbms.DialectSQLServer, schemaName, flags)
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

// fillIdentity enriches reflected columns with sys.identity_columns
// metadata, since information_schema carries no IDENTITY concept on SQL
// Server.
func (c *Client) fillIdentity(ctx context.Context, schema *rdbms.Schema) error {
	for ti, table := range schema.Tables {
		rows, err := c.db.QueryContext(ctx, `
			SELECT c.name, IDENT_CURRENT(@p2 + '.' + @p1) AS current_value
			FROM sys.identity_columns c
			JOIN sys.tables t ON c.object_id = t.object_id
			WHERE t.name = @p1`, table.Name, schema.Name)
		if err != nil {
			return fmt.Errorf("sqlserver: identity reflect %s: %w", table.Name, err)
		}
		for rows.Next() {
			var name string
			var current sql.NullFloat64
			if err := rows.Scan(&name, &current); err != nil {
				rows.Close()
				return err
			}
			for ci, col := range table.Columns {
				if col.Name != name {
					continue
				}
				schema.Tables[ti].Columns[ci].Identity.IsIdentity = true
				if current.Valid {
					schema.Tables[ti].Columns[ci].Identity.MaxValue = int64(current.Float64)
					schema.Tables[ti].Columns[ci].Identity.MaxValueSet = true
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
	row := c.db.QueryRowContext(ctx, `
		SELECT OBJECT_DEFINITION(OBJECT_ID(@p1 + '.' + @p2))`, schemaName, name)
	if err := row.Scan(&def); err != nil {
		return "", fmt.Errorf("sqlserver: view_ddl: %w", err)
	}
	return def, nil
}
