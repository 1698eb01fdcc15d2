// Package mysql implements rdbms.Client for MySQL/MariaDB, adapted from
// the connection-pool shape of the teacher's internal/storage/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/thewisecoder/dbrief/internal/rdbms"
	"github.com/thewisecoder/dbrief/internal/rdbms/dialectutil"
)

// Client implements rdbms.Client over database/sql with the MySQL driver.
type Client struct {
	cfg rdbms.ConnConfig
	db  *sql.DB
}

// New constructs an unconnected Client for cfg.
func New(cfg rdbms.ConnConfig) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) dsn() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		c.cfg.User, c.cfg.Password, c.cfg.Host, c.cfg.Port, c.cfg.Name)
}

func (c *Client) Connect(ctx context.Context) error {
	db, err := sql.Open("mysql", c.dsn())
	if err != nil {
		return fmt.Errorf("mysql: open: %w", err)
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
		return fmt.Errorf("mysql: ping: %w", err)
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

func (c *Client) Dialect() rdbms.Dialect { return rdbms.DialectMySQL }

func (c *Client) Execute(ctx context.Context, stmt string, args ...any) (int64, error) {
	res, err := c.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("mysql: execute: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (c *Client) Select(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mysql: select: %w", err)
	}
	return rows, nil
}

func (c *Client) Count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("mysql: count: %w", err)
	}
	return n, nil
}

func (c *Client) BulkInsert(ctx context.Context, table string, columns []string, in <-chan []any, batchSize int) (int64, error) {
	return dialectutil.BatchedInsert(ctx, c.db, dialectutil.PlaceholderQuestion, table, columns, in, batchSize)
}

func (c *Client) Sync(ctx context.Context, plan rdbms.SyncPlan, source rdbms.Client) (rdbms.SyncResult, error) {
	return dialectutil.GenericSync(ctx, c.db, dialectutil.PlaceholderQuestion, plan, source)
}

func (c *Client) StreamLOB(ctx context.Context, query string, args []any, chunkSize int) (io.ReadCloser, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mysql: stream_lob: %w", err)
	}
	return dialectutil.NewRowsLOBReader(rows, chunkSize), nil
}

func (c *Client) MigrateLOB(ctx context.Context, source rdbms.Client, table, column string, ref rdbms.RefSpec, partition rdbms.Partition, chunkSize int) (int64, error) {
	return dialectutil.GenericMigrateLOB(ctx, c.db, dialectutil.PlaceholderQuestion, source, table, column, ref, partition, chunkSize)
}

func (c *Client) ReflectSchema(ctx context.Context, schemaName string, flags rdbms.ReflectFlags) (*rdbms.Schema, error) {
	return dialectutil.ReflectInformationSchema(ctx, c.db, rdbms.DialectMySQL, schemaName, flags)
}

func (c *Client) ViewDDL(ctx context.Context, schemaName, name string) (string, error) {
	var tbl, ddl string
	row := c.db.QueryRowContext(ctx, fmt.Sprintf("SHOW CREATE TABLE `%s`.`%s`", schemaName, name))
	if err := row.Scan(&tbl, &ddl); err != nil {
		return "", fmt.Errorf("mysql: view_ddl: %w", err)
	}
	return strings.TrimSpace(ddl), nil
}
