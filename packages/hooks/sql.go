package hooks

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/hookspec/packages/builtin"
	"github.com/abdul-hamid-achik/hookspec/packages/core/errs"
	"github.com/abdul-hamid-achik/hookspec/packages/db"
)

const defaultDatabase = "main"

var errNoDatabases = errors.New("no databases configured")

var columnName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LookupSQL builds the default lookup of columns in the users table for
// identifier. Integer-like identifiers are compared as numbers, anything else
// as a quoted string.
func LookupSQL(columns, identifier string) string {
	if n, ok := builtin.ToInt(identifier); ok {
		return fmt.Sprintf("SELECT %s FROM users WHERE id = %d", columns, n)
	}
	return fmt.Sprintf("SELECT %s FROM users WHERE id = '%s'", columns, strings.ReplaceAll(identifier, "'", "''"))
}

func sqlParams(extra ...builtin.Param) []builtin.Param {
	params := []builtin.Param{
		{Name: "identifier"},
		{Name: "query"},
	}
	params = append(params, extra...)
	return append(params,
		builtin.Param{Name: "db_name", Default: defaultDatabase},
		builtin.Param{Name: "role"},
	)
}

// queryRow resolves the SQL for the call and returns its first row.
func queryRow(c *builtin.Call, dbs Databases, columns string) (db.Row, string, error) {
	if dbs == nil {
		return nil, "", errs.External(c.Name(), errNoDatabases)
	}

	sql := c.String("query")
	if !c.Has("query") {
		if !c.Has("identifier") {
			return nil, "", c.Argf("either identifier or query is required")
		}
		sql = LookupSQL(columns, c.String("identifier"))
	}

	dbName := c.String("db_name")
	if dbName == "" {
		dbName = defaultDatabase
	}

	handle, err := dbs.Get(c.Context(), dbName, c.String("role"))
	if err != nil {
		return nil, sql, err
	}

	c.Logger().Debug("running sql", "database", dbName, "sql", sql)
	row, err := handle.Query(c.Context(), sql)
	if err != nil {
		return nil, sql, errs.External("query "+dbName, err)
	}
	return row, sql, nil
}

func assertSQL(dbs Databases) builtin.Function {
	return builtin.Function{
		Name:    "setup_hook_assert_sql",
		Params:  sqlParams(builtin.Param{Name: "fail_message"}),
		Returns: builtin.ReturnMapping,
		Doc:     "Fails the step when the SQL lookup returns no row. Returns {sql_assert_ok: true}.",
		Fn: func(c *builtin.Call) (any, error) {
			row, sql, err := queryRow(c, dbs, "id, status")
			if err != nil {
				return nil, err
			}
			if row.Empty() {
				if c.Has("fail_message") {
					return nil, errs.Assertf("%s", c.String("fail_message"))
				}
				return nil, errs.Assertf("SQL returned no rows: %s", sql)
			}
			return map[string]any{"sql_assert_ok": true}, nil
		},
	}
}

func expectedSQLValue(dbs Databases) builtin.Function {
	return builtin.Function{
		Name:    "expected_sql_value",
		Params:  sqlParams(builtin.Param{Name: "column", Default: "status"}, builtin.Param{Name: "default"}),
		Returns: builtin.ReturnValue,
		Doc:     "Returns one column of the first row of an SQL lookup, for use as an expected value.",
		Fn: func(c *builtin.Call) (any, error) {
			column := c.String("column")
			// Only a generated lookup splices the column into SQL.
			if !c.Has("query") && !columnName.MatchString(column) {
				return nil, c.Argf("invalid column name %q", column)
			}

			row, sql, err := queryRow(c, dbs, column)
			if err != nil {
				return nil, err
			}
			if row.Empty() {
				if c.Has("default") {
					return c.Value("default"), nil
				}
				return nil, errs.Assertf("SQL returned no rows for column %s: %s", column, sql)
			}

			v, err := row.Column(column)
			if err != nil {
				return nil, errs.Assertf("SQL result has no column %s: %v", column, row.Columns())
			}
			return v, nil
		},
	}
}
