package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewisecoder/dbrief/internal/rdbms"
	"github.com/thewisecoder/dbrief/internal/typeequiv"
)

func sampleSchema() *rdbms.Schema {
	return &rdbms.Schema{
		Name: "hr",
		Tables: []rdbms.Table{
			{
				Name: "dept",
				Columns: []rdbms.Column{
					{Name: "id", TypeClass: rdbms.ClassRefInteger, NativeType: "int", PrimaryKey: true},
					{Name: "name", TypeClass: rdbms.ClassRefString, NativeType: "varchar"},
				},
			},
			{
				Name: "emp",
				Columns: []rdbms.Column{
					{Name: "id", TypeClass: rdbms.ClassRefInteger, NativeType: "int", PrimaryKey: true},
					{Name: "dept_id", TypeClass: rdbms.ClassRefInteger, NativeType: "int",
						ForeignKey: &rdbms.ForeignKeyRef{Table: "dept", Column: "id"}},
				},
			},
			{
				Name: "audit",
				Columns: []rdbms.Column{
					{Name: "id", TypeClass: rdbms.ClassRefInteger, NativeType: "int"},
				},
			},
		},
	}
}

func TestFilterRelations_IncludeExclude(t *testing.T) {
	schema := sampleSchema()

	names, err := FilterRelations(schema, []string{"EMP", "Dept"}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"emp", "dept"}, names)

	names, err = FilterRelations(schema, nil, []string{"audit"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"dept", "emp"}, names)
}

func TestFilterRelations_MissingNameFails(t *testing.T) {
	schema := sampleSchema()
	_, err := FilterRelations(schema, []string{"nonexistent"}, nil)
	require.Error(t, err)
}

func TestTopoSortByForeignKey_ParentBeforeChild(t *testing.T) {
	schema := sampleSchema()
	ordered, err := TopoSortByForeignKey(schema, []string{"emp", "dept"})
	require.NoError(t, err)
	require.Equal(t, []string{"dept", "emp"}, ordered)
}

func TestTopoSortByForeignKey_CycleFails(t *testing.T) {
	schema := &rdbms.Schema{
		Tables: []rdbms.Table{
			{Name: "a", Columns: []rdbms.Column{
				{Name: "b_id", ForeignKey: &rdbms.ForeignKeyRef{Table: "b", Column: "id"}},
			}},
			{Name: "b", Columns: []rdbms.Column{
				{Name: "a_id", ForeignKey: &rdbms.ForeignKeyRef{Table: "a", Column: "id"}},
			}},
		},
	}
	_, err := TopoSortByForeignKey(schema, []string{"a", "b"})
	require.Error(t, err)
}

func TestRenderCreateTable_PostgresIdentityAndPK(t *testing.T) {
	cols := []ResolvedColumn{
		{
			Name:   "id",
			Source: rdbms.Column{Name: "id", PrimaryKey: true, Identity: rdbms.IdentityInfo{IsIdentity: true}},
			Resolved: resolvedFor("integer"),
		},
		{
			Name:     "name",
			Source:   rdbms.Column{Name: "name"},
			Resolved: resolvedFor("varchar"),
		},
	}
	ddl := renderCreateTable(rdbms.DialectPostgres, "hr", "emp", cols)
	assert.Contains(t, ddl, "CREATE TABLE hr.emp")
	assert.Contains(t, ddl, "GENERATED BY DEFAULT AS IDENTITY (CACHE 1)")
	assert.Contains(t, ddl, "PRIMARY KEY (id)")
}

func TestRenderDropTable_OracleUsesExceptionBlock(t *testing.T) {
	ddl := renderDropTable(rdbms.DialectOracle, "hr", "emp")
	assert.Contains(t, ddl, "CASCADE CONSTRAINTS")
	assert.Contains(t, ddl, "SQLCODE != -942")
}

func resolvedFor(stem string) typeequiv.Resolved {
	return typeequiv.Resolved{Dialect: rdbms.DialectPostgres, Stem: typeequiv.Stem(stem)}
}

func TestRenderCreateIndex_UniqueAndNonUnique(t *testing.T) {
	ddl := renderCreateIndex(rdbms.DialectPostgres, "hr", "emp",
		rdbms.Index{Name: "emp_email_uk", Columns: []string{"email"}, Unique: true})
	assert.Equal(t, "CREATE UNIQUE INDEX emp_email_uk ON hr.emp (email)", ddl)

	ddl = renderCreateIndex(rdbms.DialectPostgres, "hr", "emp",
		rdbms.Index{Name: "emp_dept_idx", Columns: []string{"dept_id", "hired_at"}})
	assert.Equal(t, "CREATE INDEX emp_dept_idx ON hr.emp (dept_id, hired_at)", ddl)
}

func TestRenderCreateIndex_QuotesReservedColumnNames(t *testing.T) {
	ddl := renderCreateIndex(rdbms.DialectMySQL, "hr", "emp",
		rdbms.Index{Name: "emp_order_idx", Columns: []string{"order"}})
	assert.Contains(t, ddl, "(`order`)")
}

// fakeViewClient is a minimal rdbms.Client stub exercising only the
// methods materializeViews calls (ViewDDL, Execute, Dialect), matching
// the fake-client style used by other component tests in this repo.
type fakeViewClient struct {
	dialect  rdbms.Dialect
	ddl      map[string]string
	ddlErr   error
	execErr  error
	executed []string
}

func (f *fakeViewClient) Connect(ctx context.Context) error { return nil }
func (f *fakeViewClient) Close() error                      { return nil }
func (f *fakeViewClient) Execute(ctx context.Context, stmt string, args ...any) (int64, error) {
	if f.execErr != nil {
		return 0, f.execErr
	}
	f.executed = append(f.executed, stmt)
	return 0, nil
}
func (f *fakeViewClient) Select(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeViewClient) Count(ctx context.Context, query string, args ...any) (int64, error) {
	return 0, fmt.Errorf("not implemented")
}
func (f *fakeViewClient) BulkInsert(ctx context.Context, table string, columns []string, in <-chan []any, batchSize int) (int64, error) {
	return 0, fmt.Errorf("not implemented")
}
func (f *fakeViewClient) Sync(ctx context.Context, plan rdbms.SyncPlan, source rdbms.Client) (rdbms.SyncResult, error) {
	return rdbms.SyncResult{}, fmt.Errorf("not implemented")
}
func (f *fakeViewClient) StreamLOB(ctx context.Context, query string, args []any, chunkSize int) (io.ReadCloser, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeViewClient) MigrateLOB(ctx context.Context, source rdbms.Client, table, column string, ref rdbms.RefSpec, partition rdbms.Partition, chunkSize int) (int64, error) {
	return 0, fmt.Errorf("not implemented")
}
func (f *fakeViewClient) ReflectSchema(ctx context.Context, schemaName string, flags rdbms.ReflectFlags) (*rdbms.Schema, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeViewClient) ViewDDL(ctx context.Context, schemaName, name string) (string, error) {
	if f.ddlErr != nil {
		return "", f.ddlErr
	}
	return f.ddl[name], nil
}
func (f *fakeViewClient) Dialect() rdbms.Dialect { return f.dialect }

func TestMaterializeViews_SameDialectPassesThrough(t *testing.T) {
	source := &fakeViewClient{dialect: rdbms.DialectPostgres, ddl: map[string]string{
		"active_emp": "CREATE VIEW active_emp AS SELECT * FROM emp WHERE active",
	}}
	target := &fakeViewClient{dialect: rdbms.DialectPostgres}

	warnings := materializeViews(context.Background(), source, target, Spec{FromSchema: "hr", ToSchema: "hr"}, []string{"active_emp"})

	assert.Empty(t, warnings)
	require.Len(t, target.executed, 1)
	assert.Equal(t, "CREATE VIEW active_emp AS SELECT * FROM emp WHERE active", target.executed[0])
}

func TestMaterializeViews_CrossDialectWarnsAndSkips(t *testing.T) {
	source := &fakeViewClient{dialect: rdbms.DialectOracle}
	target := &fakeViewClient{dialect: rdbms.DialectPostgres}

	warnings := materializeViews(context.Background(), source, target, Spec{FromSchema: "hr", ToSchema: "hr"}, []string{"active_emp", "dept_totals"})

	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "active_emp")
	assert.Contains(t, warnings[0], "not supported")
	assert.Empty(t, target.executed)
}

func TestMaterializeViews_SourceDDLErrorWarnsNotFatal(t *testing.T) {
	source := &fakeViewClient{dialect: rdbms.DialectPostgres, ddlErr: fmt.Errorf("connection reset")}
	target := &fakeViewClient{dialect: rdbms.DialectPostgres}

	warnings := materializeViews(context.Background(), source, target, Spec{FromSchema: "hr", ToSchema: "hr"}, []string{"active_emp"})

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "active_emp")
	assert.Contains(t, warnings[0], "connection reset")
}

func TestMaterializeViews_TargetExecErrorWarnsNotFatal(t *testing.T) {
	source := &fakeViewClient{dialect: rdbms.DialectPostgres, ddl: map[string]string{"active_emp": "CREATE VIEW active_emp AS SELECT 1"}}
	target := &fakeViewClient{dialect: rdbms.DialectPostgres, execErr: fmt.Errorf("permission denied")}

	warnings := materializeViews(context.Background(), source, target, Spec{FromSchema: "hr", ToSchema: "hr"}, []string{"active_emp"})

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "permission denied")
}
