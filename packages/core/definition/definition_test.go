package definition

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersSuite = `
config:
  name: orders
  base_url: ${env.BASE_URL}
  variables:
    sku: ${short_uid(6)}
  setup_hooks:
    - ${suite_setup()}
  tags: [api]
cases:
  - config:
      name: create order
      tags: [smoke]
      fail_fast: true
      skip_if: env == "prod"
    steps:
      - name: create
        setup_hooks:
          - ${setup_hook_sign_request($request)}
        request:
          method: post
          path: /orders
          headers:
            X-Trace: ${uid()}
          body:
            sku: $sku
            qty: 2
        extract:
          order_id: $.data.id
        validate:
          - eq: [status_code, 201]
          - exists: [$.data.id]
          - eq: [$.data.status, "${expected_sql_value($order_id)}"]
        timeout: 1.5
      - request:
          url: /orders/${order_id}
        teardown_hooks:
          - ${teardown_hook_validate_status($response)}
        timeout: 250ms
  - steps:
      - request:
          path: /health
`

func TestParse(t *testing.T) {
	suite, err := Parse([]byte(ordersSuite), "orders.yaml")
	require.NoError(t, err)

	assert.Equal(t, "orders.yaml", suite.Path)
	assert.Equal(t, "orders", suite.Config.Name)
	assert.Equal(t, "${env.BASE_URL}", suite.Config.BaseURL)
	assert.Equal(t, []string{"${suite_setup()}"}, suite.Config.SetupHooks)
	require.Len(t, suite.Cases, 2)

	c := suite.Cases[0]
	assert.Equal(t, "create order", c.Name())
	assert.True(t, c.Config.FailFast)
	assert.Equal(t, `env == "prod"`, c.Config.SkipIf)
	assert.True(t, c.HasTag("smoke", suite))
	assert.True(t, c.HasTag("api", suite), "suite tags apply to every case")
	assert.False(t, c.HasTag("slow", suite))

	require.Len(t, c.Steps, 2)
	create := c.Steps[0]
	assert.Equal(t, "POST", create.Request.Method)
	assert.Equal(t, "/orders", create.Request.Target())
	assert.Equal(t, map[string]any{"sku": "$sku", "qty": 2}, create.Request.Body)
	assert.Equal(t, map[string]string{"order_id": "$.data.id"}, create.Extract)
	assert.Equal(t, 1500*time.Millisecond, create.Timeout.Std())

	require.Len(t, create.Validate, 3)
	assert.Equal(t, Validation{Comparator: "eq", Check: "status_code", Expected: 201, Line: create.Validate[0].Line}, create.Validate[0])
	assert.Equal(t, "exists", create.Validate[1].Comparator)
	assert.Nil(t, create.Validate[1].Expected)
	assert.Equal(t, "${expected_sql_value($order_id)}", create.Validate[2].Expected)

	get := c.Steps[1]
	assert.Equal(t, "step 2", get.Name)
	assert.Equal(t, "GET", get.Request.Method)
	assert.Equal(t, 250*time.Millisecond, get.Timeout.Std())

	assert.Equal(t, "case 2", suite.Cases[1].Name())
}

func TestParse_DefaultSuiteName(t *testing.T) {
	suite, err := Parse([]byte("cases:\n  - steps:\n      - request: {url: /x}\n"), "dir/users.yml")
	require.NoError(t, err)
	assert.Equal(t, "users", suite.Config.Name)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		msg     string
	}{
		{"empty file", "", "file is empty"},
		{"no cases", "config: {name: x}\n", "no cases"},
		{"no steps", "cases:\n  - config: {name: c}\n", "no steps"},
		{"missing url", "cases:\n  - steps:\n      - request: {method: GET}\n", "url or path is required"},
		{"url and path", "cases:\n  - steps:\n      - request: {url: /a, path: /b}\n", "mutually exclusive"},
		{"unknown comparator", "cases:\n  - steps:\n      - request: {url: /a}\n        validate:\n          - roughly: [status_code, 200]\n", "unknown comparator"},
		{"two-key validation", "cases:\n  - steps:\n      - request: {url: /a}\n        validate:\n          - {eq: [a, 1], ne: [b, 2]}\n", "single"},
		{"too many validation args", "cases:\n  - steps:\n      - request: {url: /a}\n        validate:\n          - eq: [a, 1, 2]\n", "needs [check, expected]"},
		{"non-string check", "cases:\n  - steps:\n      - request: {url: /a}\n        validate:\n          - eq: [1, 1]\n", "check must be a string"},
		{"unknown field", "cases:\n  - steps:\n      - request: {url: /a}\n        retries: 3\n", "retries"},
		{"bad timeout", "cases:\n  - steps:\n      - request: {url: /a}\n        timeout: soon\n", "invalid timeout"},
		{"empty hook", "config:\n  setup_hooks: ['']\ncases:\n  - steps:\n      - request: {url: /a}\n", "hook 0 is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), "bad.yaml")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSuite))
			assert.Contains(t, err.Error(), "bad.yaml")
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestTemplates(t *testing.T) {
	suite, err := Parse([]byte(ordersSuite), "orders.yaml")
	require.NoError(t, err)

	refs := suite.Templates()

	byLocation := make(map[string]TemplateRef, len(refs))
	for _, r := range refs {
		byLocation[r.Location] = r
	}

	assert.Equal(t, "${env.BASE_URL}", byLocation["config.base_url"].Source)
	assert.Equal(t, "${short_uid(6)}", byLocation["config.variables.sku"].Source)
	assert.True(t, byLocation["config.setup_hooks[0]"].Hook)
	assert.True(t, byLocation["cases[0].steps[0].setup_hooks[0]"].Hook)
	assert.Equal(t, "${uid()}", byLocation["cases[0].steps[0].request.headers.X-Trace"].Source)
	assert.Equal(t, "/orders/${order_id}", byLocation["cases[0].steps[1].request.url"].Source)
	assert.Equal(t, "${expected_sql_value($order_id)}", byLocation["cases[0].steps[0].validate[2].expected"].Source)
	assert.True(t, byLocation["cases[0].steps[1].teardown_hooks[0]"].Hook)

	_, plain := byLocation["cases[0].steps[0].request.url"]
	assert.False(t, plain, "strings without expressions are not listed")
	_, literal := byLocation["cases[0].steps[0].request.body.sku"]
	assert.False(t, literal)

	assert.Equal(t, "config.base_url", refs[0].Location)
}

func TestLoadAndDiscover(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	hidden := filepath.Join(dir, ".git")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.MkdirAll(hidden, 0755))

	suite := []byte("cases:\n  - steps:\n      - request: {url: /x}\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), suite, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "a.yml"), suite, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hookspec.yaml"), []byte("concurrency: 2\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(hidden, "c.yaml"), suite, 0644))

	files, err := Discover([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.yaml"), filepath.Join(nested, "a.yml")}, files)

	loaded, err := Load(files[0])
	require.NoError(t, err)
	assert.Equal(t, "b", loaded.Config.Name)

	_, err = Discover([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
