package hooks

import (
	"context"
	"time"

	"github.com/abdul-hamid-achik/hookspec/packages/builtin"
	"github.com/abdul-hamid-achik/hookspec/packages/db"
)

// Databases is the part of *db.Proxy the SQL helpers need.
type Databases interface {
	Get(ctx context.Context, dbName, role string) (db.Handle, error)
}

// Deps are the collaborators of the hook functions.
type Deps struct {
	// DB serves setup_hook_assert_sql and expected_sql_value. When nil those
	// functions fail with an external error.
	DB Databases

	// Now defaults to time.Now.
	Now func() time.Time
}

// Register adds every hook function to reg.
func Register(reg *builtin.Registry, deps Deps) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	fns := []builtin.Function{
		signRequest(deps.Now),
		logResponse(),
		validateStatus(),
		assertSQL(deps.DB),
		expectedSQLValue(deps.DB),
		suiteSetup(),
		suiteTeardown(),
		caseSetup(),
		caseTeardown(),
	}
	for _, fn := range fns {
		if err := reg.Register(fn); err != nil {
			return err
		}
	}
	return nil
}

// hookParams declares the (record, variables, env) parameter list shared by
// the request and response hooks.
func hookParams(record string) []builtin.Param {
	return []builtin.Param{
		{Name: record, Required: true},
		{Name: "variables"},
		{Name: "env"},
	}
}

// lookupVar reads name from the explicitly passed mapping argument when
// present, otherwise from the call's own view.
func lookupVar(c *builtin.Call, arg string, view builtin.Variables, name string) (any, bool) {
	if m, ok := builtin.ToMap(c.Value(arg)); ok {
		v, ok := m[name]
		return v, ok
	}
	return view.Get(name)
}
