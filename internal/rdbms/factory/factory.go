// Package factory wires a rdbms.ConnConfig to its concrete dialect
// adapter. It is the only package that imports all four dialect
// subpackages, so the rest of the engine depends only on the narrow
// rdbms.Client interface (spec.md §1).
package factory

import (
	"context"
	"fmt"

	"github.com/thewisecoder/dbrief/internal/rdbms"
	"github.com/thewisecoder/dbrief/internal/rdbms/mysql"
	"github.com/thewisecoder/dbrief/internal/rdbms/oracle"
	"github.com/thewisecoder/dbrief/internal/rdbms/postgres"
	"github.com/thewisecoder/dbrief/internal/rdbms/sqlserver"
)

// New constructs (but does not Connect) a Client for cfg.Engine.
func New(cfg rdbms.ConnConfig) (rdbms.Client, error) {
	switch cfg.Engine {
	case rdbms.DialectMySQL:
		return mysql.New(cfg), nil
	case rdbms.DialectPostgres:
		return postgres.New(cfg), nil
	case rdbms.DialectOracle:
		return oracle.New(cfg), nil
	case rdbms.DialectSQLServer:
		return sqlserver.New(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported RDBMS engine %q", cfg.Engine)
	}
}

// Connected constructs and connects a Client for cfg.Engine in one step,
// convenient for the per-worker connection factories plaindata.Transfer
// and the LOB transfer components expect.
func Connected(ctx context.Context, cfg rdbms.ConnConfig) (rdbms.Client, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Engine, err)
	}
	return c, nil
}
