package hooks

import (
	"sort"

	"github.com/abdul-hamid-achik/hookspec/packages/builtin"
	"github.com/abdul-hamid-achik/hookspec/packages/core/errs"
	"github.com/abdul-hamid-achik/hookspec/packages/http"
)

func responseArg(c *builtin.Call) (*http.Response, error) {
	resp, ok := c.Value("response").(*http.Response)
	if !ok {
		return nil, c.Argf("response must be a response record, got %T", c.Value("response"))
	}
	return resp, nil
}

func logResponse() builtin.Function {
	return builtin.Function{
		Name:    "teardown_hook_log_response",
		Params:  hookParams("response"),
		Returns: builtin.ReturnNone,
		Doc:     "Logs the status code and top-level body keys.",
		Fn: func(c *builtin.Call) (any, error) {
			resp, err := responseArg(c)
			if err != nil {
				return nil, err
			}

			keys := []string{}
			if body, ok := resp.Body.(map[string]any); ok {
				for k := range body {
					keys = append(keys, k)
				}
				sort.Strings(keys)
			}

			c.Logger().Info("response received",
				"status", resp.StatusCode,
				"body_keys", keys,
				"elapsed_ms", resp.DurationMs(),
			)
			return nil, nil
		},
	}
}

func validateStatus() builtin.Function {
	return builtin.Function{
		Name:    "teardown_hook_validate_status",
		Params:  hookParams("response"),
		Returns: builtin.ReturnNone,
		Doc:     "Fails the step unless the status code is 2xx.",
		Fn: func(c *builtin.Call) (any, error) {
			resp, err := responseArg(c)
			if err != nil {
				return nil, err
			}
			if !resp.IsSuccess() {
				return nil, errs.Assertf("expected 2xx status code, got %d", resp.StatusCode)
			}
			return nil, nil
		},
	}
}
