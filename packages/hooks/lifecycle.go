package hooks

import "github.com/abdul-hamid-achik/hookspec/packages/builtin"

func suiteSetup() builtin.Function {
	return builtin.Function{
		Name:    "suite_setup",
		Returns: builtin.ReturnMapping,
		Doc:     "Runs before the first case of a suite.",
		Fn: func(c *builtin.Call) (any, error) {
			c.Logger().Info("suite setup: preparing test environment")
			return map[string]any{}, nil
		},
	}
}

func suiteTeardown() builtin.Function {
	return builtin.Function{
		Name:    "suite_teardown",
		Returns: builtin.ReturnNone,
		Doc:     "Runs after every case of a suite has finished.",
		Fn: func(c *builtin.Call) (any, error) {
			c.Logger().Info("suite teardown: cleaning up test environment")
			return nil, nil
		},
	}
}

func caseSetup() builtin.Function {
	return builtin.Function{
		Name:    "case_setup",
		Returns: builtin.ReturnMapping,
		Doc:     "Runs before the first step of a case.",
		Fn: func(c *builtin.Call) (any, error) {
			c.Logger().Info("case setup: preparing case data")
			return map[string]any{}, nil
		},
	}
}

func caseTeardown() builtin.Function {
	return builtin.Function{
		Name:    "case_teardown",
		Returns: builtin.ReturnNone,
		Doc:     "Runs after the last step of a case, whatever its outcome.",
		Fn: func(c *builtin.Call) (any, error) {
			c.Logger().Info("case teardown: cleaning up case data")
			return nil, nil
		},
	}
}
