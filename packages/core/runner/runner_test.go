package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hookspec/packages/builtin"
	"github.com/abdul-hamid-achik/hookspec/packages/core/definition"
	"github.com/abdul-hamid-achik/hookspec/packages/core/env"
	"github.com/abdul-hamid-achik/hookspec/packages/core/errs"
	"github.com/abdul-hamid-achik/hookspec/packages/core/eval"
	"github.com/abdul-hamid-achik/hookspec/packages/core/parser"
	"github.com/abdul-hamid-achik/hookspec/packages/db"
	"github.com/abdul-hamid-achik/hookspec/packages/hooks"
	"github.com/abdul-hamid-achik/hookspec/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method  string
	URL     string
	Headers nethttp.Header
}

type testServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func (s *testServer) last() recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{}
	mux := nethttp.NewServeMux()

	mux.HandleFunc("/echo", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"token":  r.Header.Get("X-Token"),
			"n":      r.URL.Query().Get("n"),
		})
	})
	mux.HandleFunc("/items", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, nethttp.StatusCreated, map[string]any{
			"data": map[string]any{"id": 42, "name": body["name"]},
		})
	})
	mux.HandleFunc("/items/", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{"path": r.URL.Path})
	})
	mux.HandleFunc("/slow", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{})
	})
	mux.HandleFunc("/missing", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "not found"})
	})

	ts.Server = httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ts.mu.Lock()
		ts.requests = append(ts.requests, recordedRequest{
			Method:  r.Method,
			URL:     "http://" + r.Host + r.URL.RequestURI(),
			Headers: r.Header.Clone(),
		})
		ts.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestRunner(t *testing.T, cfg *Config, fns ...builtin.Function) *Runner {
	t.Helper()
	reg := builtin.NewRegistry()
	require.NoError(t, hooks.Register(reg, hooks.Deps{}))
	for _, fn := range fns {
		require.NoError(t, reg.Register(fn))
	}
	reg.Freeze()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return NewRunner(eval.New(reg), http.NewClient(), cfg)
}

func parseSuite(t *testing.T, src string) *definition.Suite {
	t.Helper()
	suite, err := definition.Parse([]byte(src), "suite.yaml")
	require.NoError(t, err)
	return suite
}

func baseScope(srv *testServer) *env.Scope {
	return env.NewScope(map[string]string{"BASE_URL": srv.URL})
}

func counter(name string, n *atomic.Int32) builtin.Function {
	return builtin.Function{
		Name:    name,
		Returns: builtin.ReturnNone,
		Fn: func(c *builtin.Call) (any, error) {
			n.Add(1)
			return nil, nil
		},
	}
}

func failing(name string, err error) builtin.Function {
	return builtin.Function{
		Name: name,
		Fn: func(c *builtin.Call) (any, error) {
			return nil, err
		},
	}
}

func stepStates(r *StepResult) []State {
	var out []State
	for _, tr := range r.Trace {
		out = append(out, tr.State)
	}
	return out
}

func TestParseHook(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr bool
		call    string
	}{
		{name: "single call", src: "${setup_hook_sign_request($request)}", call: "setup_hook_sign_request"},
		{name: "call with kwargs", src: "${setup_hook_assert_sql($id, db_name='main')}", call: "setup_hook_assert_sql"},
		{name: "literal", src: "sign request", wantErr: true},
		{name: "variable reference", src: "${$request}", wantErr: true},
		{name: "surrounding text", src: "pre ${suite_setup()}", wantErr: true},
		{name: "two calls", src: "${suite_setup()}${suite_setup()}", wantErr: true},
		{name: "unterminated", src: "${suite_setup(", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook, err := ParseHook(PhaseStepSetup, tt.src)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errs.KindSyntax, errs.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.call, hook.Call.Name)
			assert.Equal(t, PhaseStepSetup, hook.Phase)
			assert.Equal(t, tt.src, hook.Source)
		})
	}
}

func TestPhase_Layer(t *testing.T) {
	assert.Equal(t, env.LayerSuite, PhaseSuiteSetup.Layer())
	assert.Equal(t, env.LayerSuite, PhaseSuiteTeardown.Layer())
	assert.Equal(t, env.LayerCase, PhaseCaseSetup.Layer())
	assert.Equal(t, env.LayerCase, PhaseCaseTeardown.Layer())
	assert.Equal(t, env.LayerStep, PhaseStepSetup.Layer())
	assert.Equal(t, env.LayerStep, PhaseStepTeardown.Layer())
	assert.Equal(t, "step-teardown", PhaseStepTeardown.String())
}

func TestRunSuite_HookChaining(t *testing.T) {
	srv := newServer(t)

	issue := builtin.Function{
		Name:    "issue_token",
		Params:  []builtin.Param{{Name: "request", Required: true}},
		Returns: builtin.ReturnMapping,
		Fn: func(c *builtin.Call) (any, error) {
			return map[string]any{"token": "abc-123"}, nil
		},
	}
	apply := builtin.Function{
		Name: "apply_token",
		Params: []builtin.Param{
			{Name: "request", Required: true},
			{Name: "token", Required: true},
		},
		Returns: builtin.ReturnNone,
		Fn: func(c *builtin.Call) (any, error) {
			req := c.Value("request").(*http.Request)
			req.SetHeader("X-Token", c.String("token"))
			return nil, nil
		},
	}

	r := newTestRunner(t, nil, issue, apply)
	suite := parseSuite(t, `
config:
  name: chaining
  base_url: ${env.BASE_URL}
cases:
  - config:
      name: token flows between hooks
    steps:
      - name: echo
        setup_hooks:
          - ${issue_token($request)}
          - ${apply_token($request, $token)}
        request:
          path: /echo
        validate:
          - eq: [status_code, 200]
          - eq: [$.token, abc-123]
          - eq: [$token, abc-123]
`)

	res, err := r.RunSuite(context.Background(), suite, baseScope(srv))
	require.NoError(t, err)
	require.Len(t, res.Cases, 1)

	step := res.Cases[0].Steps[0]
	require.NoError(t, step.Error)
	assert.Equal(t, StatePassed, step.State)
	assert.Equal(t, "abc-123", srv.last().Headers.Get("X-Token"))
	assert.Equal(t, "abc-123", step.Request.Header("X-Token"))
}

func TestRunSuite_SignedRequest(t *testing.T) {
	srv := newServer(t)
	r := newTestRunner(t, nil)
	suite := parseSuite(t, `
config:
  base_url: ${env.BASE_URL}
cases:
  - steps:
      - setup_hooks:
          - ${setup_hook_sign_request($request)}
        teardown_hooks:
          - ${teardown_hook_validate_status($response)}
          - ${teardown_hook_log_response($response)}
        request:
          method: post
          path: /echo
        validate:
          - eq: [$.method, POST]
          - len_eq: [$last_signature, 64]
`)

	res, err := r.RunSuite(context.Background(), suite, env.NewScope(map[string]string{
		"BASE_URL":   srv.URL,
		"APP_SECRET": "s3cret",
	}))
	require.NoError(t, err)
	step := res.Cases[0].Steps[0]
	require.NoError(t, step.Error)

	got := srv.last()
	ts := got.Headers.Get(hooks.HeaderTimestamp)
	sig := got.Headers.Get(hooks.HeaderSignature)
	require.NotEmpty(t, ts)
	assert.True(t, hooks.Verify("s3cret", "POST", srv.URL+"/echo", ts, sig))
}

func TestRunSuite_StepLifecycleAndExtraction(t *testing.T) {
	srv := newServer(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	reg := builtin.NewRegistry()
	require.NoError(t, hooks.Register(reg, hooks.Deps{}))
	reg.Freeze()
	r := NewRunner(eval.New(reg), http.NewClient(), &Config{
		Concurrency:            1,
		BaseURL:                srv.URL,
		TeardownOnSetupFailure: true,
	}, WithLogger(logger))

	suite := parseSuite(t, `
config:
  name: items
  variables:
    item_name: widget
cases:
  - config:
      name: create then fetch
    steps:
      - name: create
        request:
          method: POST
          path: /items
          body:
            name: ${item_name}
        extract:
          item_id: $.data.id
        validate:
          - eq: [status_code, 201]
          - eq: [$.data.name, widget]
      - name: fetch
        request:
          path: /items/${item_id}
          params:
            verbose: "true"
        validate:
          - eq: [$.path, /items/42]
          - eq: ["${response.status_code}", 200]
`)

	res, err := r.RunSuite(context.Background(), suite, nil)
	require.NoError(t, err)

	cr := res.Cases[0]
	assert.Equal(t, StatusPassed, cr.Status)
	require.Len(t, cr.Steps, 2)

	create := cr.Steps[0]
	assert.Equal(t, []State{
		StatePending, StateSetup, StateSending, StateReceived,
		StateTeardown, StateValidate, StatePassed,
	}, stepStates(create))
	assert.Equal(t, map[string]any{"item_id": float64(42)}, create.Extracted)
	require.Len(t, create.Validations, 2)
	for _, v := range create.Validations {
		assert.True(t, v.Passed, v.Message)
	}

	fetch := cr.Steps[1]
	assert.Equal(t, StatePassed, fetch.State, "%v", fetch.Error)
	assert.Equal(t, srv.URL+"/items/42?verbose=true", srv.last().URL)

	logs := buf.String()
	assert.Contains(t, logs, "state=SENDING")
	assert.Contains(t, logs, "step=create")
	assert.Contains(t, logs, "suite=items")
}

func TestRunSuite_FailedVersusErrored(t *testing.T) {
	srv := newServer(t)
	r := newTestRunner(t, nil,
		failing("boom", errors.New("connection reset")),
		failing("deny", errs.Assertf("denied")),
	)

	suite := parseSuite(t, `
config:
  base_url: ${env.BASE_URL}
cases:
  - config:
      name: mismatch
    steps:
      - request:
          path: /echo
        validate:
          - eq: [status_code, 500]
          - eq: [$.method, GET]
  - config:
      name: expected value errors
    steps:
      - request:
          path: /echo
        validate:
          - eq: [status_code, "${boom()}"]
  - config:
      name: teardown assertion
    steps:
      - request:
          path: /missing
        teardown_hooks:
          - ${teardown_hook_validate_status($response)}
  - config:
      name: setup hook errors
    steps:
      - setup_hooks:
          - ${boom()}
        request:
          path: /echo
  - config:
      name: expected value assertion
    steps:
      - request:
          path: /echo
        validate:
          - eq: [status_code, "${deny()}"]
  - config:
      name: unknown variable
    steps:
      - request:
          path: /echo/${nope}
`)

	res, err := r.RunSuite(context.Background(), suite, baseScope(srv))
	require.NoError(t, err)
	require.Len(t, res.Cases, 6)

	tests := []struct {
		state State
		kind  errs.Kind
	}{
		{StateFailed, errs.KindAssertion},
		{StateErrored, errs.KindExternal},
		{StateFailed, errs.KindAssertion},
		{StateErrored, errs.KindExternal},
		{StateFailed, errs.KindAssertion},
		{StateErrored, errs.KindResolution},
	}
	for i, tt := range tests {
		step := res.Cases[i].Steps[0]
		assert.Equal(t, tt.state, step.State, res.Cases[i].Name)
		require.Error(t, step.Error, res.Cases[i].Name)
		assert.Equal(t, tt.kind, errs.KindOf(step.Error), res.Cases[i].Name)
	}

	mismatch := res.Cases[0].Steps[0]
	require.Len(t, mismatch.Validations, 2)
	assert.False(t, mismatch.Validations[0].Passed)
	assert.True(t, mismatch.Validations[1].Passed)
	assert.Contains(t, mismatch.Error.Error(), "1 of 2 validations failed")

	counts := res.StepCounts()
	assert.Equal(t, Counts{Failed: 3, Errored: 3}, counts)
	assert.Equal(t, StatusErrored, res.Status())
}

func TestRunSuite_StepTimeout(t *testing.T) {
	srv := newServer(t)
	r := newTestRunner(t, nil)

	suite := parseSuite(t, `
config:
  base_url: ${env.BASE_URL}
cases:
  - steps:
      - name: slow
        request:
          path: /slow
        timeout: 50ms
      - name: fast
        request:
          path: /echo
        validate:
          - eq: [status_code, 200]
  - steps:
      - request:
          path: /echo
`)

	start := time.Now()
	res, err := r.RunSuite(context.Background(), suite, baseScope(srv))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	slow := res.Cases[0].Steps[0]
	assert.Equal(t, StateErrored, slow.State)
	assert.Contains(t, slow.Error.Error(), "timed out after 50ms")
	assert.Equal(t, errs.KindExternal, errs.KindOf(slow.Error))

	assert.Equal(t, StatePassed, res.Cases[0].Steps[1].State)
	assert.Equal(t, StatusErrored, res.Cases[0].Status)
	assert.Equal(t, StatusPassed, res.Cases[1].Status)
}

type slowHandle struct{}

func (slowHandle) Query(ctx context.Context, _ string) (db.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return db.Row{"id": 1, "status": "active"}, nil
}

func TestRunSuite_StepTimeoutDuringDatabaseOpen(t *testing.T) {
	srv := newServer(t)

	proxy := db.NewProxy(
		map[string]map[string]string{"main": {"default": "slow"}},
		db.WithOpener(func(ctx context.Context, _ string) (db.Handle, error) {
			select {
			case <-time.After(150 * time.Millisecond):
				return slowHandle{}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}),
	)
	defer proxy.Close()

	reg := builtin.NewRegistry()
	require.NoError(t, hooks.Register(reg, hooks.Deps{DB: proxy}))
	reg.Freeze()
	cfg := DefaultConfig()
	cfg.Concurrency = 2
	r := NewRunner(eval.New(reg), http.NewClient(), cfg)

	suite := parseSuite(t, `
config:
  base_url: ${env.BASE_URL}
cases:
  - config: {name: impatient}
    steps:
      - setup_hooks:
          - ${setup_hook_assert_sql(1)}
        request:
          path: /echo
        timeout: 50ms
  - config: {name: patient}
    steps:
      - setup_hooks:
          - ${setup_hook_assert_sql(1)}
        request:
          path: /echo
        timeout: 5s
        validate:
          - eq: [status_code, 200]
`)

	res, err := r.RunSuite(context.Background(), suite, baseScope(srv))
	require.NoError(t, err)

	impatient := res.Cases[0].Steps[0]
	assert.Equal(t, StateErrored, impatient.State)
	assert.Contains(t, impatient.Error.Error(), "timed out after 50ms")

	patient := res.Cases[1]
	assert.Equal(t, StatusPassed, patient.Status, "error: %v", patient.Steps[0].Error)
}

func TestRunSuite_SuiteSetupFailure(t *testing.T) {
	srv := newServer(t)

	suiteYAML := `
config:
  base_url: ${env.BASE_URL}
  setup_hooks:
    - ${boom()}
  teardown_hooks:
    - ${track_teardown()}
cases:
  - steps:
      - request:
          path: /echo
  - steps:
      - request:
          path: /echo
`

	tests := []struct {
		name      string
		teardown  bool
		wantCalls int32
	}{
		{name: "teardown runs by default", teardown: true, wantCalls: 1},
		{name: "teardown disabled", teardown: false, wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			cfg := DefaultConfig()
			cfg.TeardownOnSetupFailure = tt.teardown
			r := newTestRunner(t, cfg, failing("boom", errors.New("db down")), counter("track_teardown", &calls))

			res, err := r.RunSuite(context.Background(), parseSuite(t, suiteYAML), baseScope(srv))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSuiteAborted))
			assert.Contains(t, err.Error(), "db down")

			require.NotNil(t, res)
			require.Len(t, res.Cases, 2)
			for _, c := range res.Cases {
				assert.Equal(t, StatusSkipped, c.Status)
				assert.Equal(t, StateSkipped, c.Steps[0].State)
			}
			assert.Equal(t, tt.wantCalls, calls.Load())

			srv.mu.Lock()
			assert.Empty(t, srv.requests)
			srv.mu.Unlock()
		})
	}
}

func TestRunSuite_SuiteTeardownFailure(t *testing.T) {
	srv := newServer(t)
	r := newTestRunner(t, nil, failing("cleanup", errors.New("cleanup failed")))

	suite := parseSuite(t, `
config:
  base_url: ${env.BASE_URL}
  variables:
    run_id: r1
  teardown_hooks:
    - ${cleanup()}
cases:
  - steps:
      - request:
          path: /echo
`)

	res, err := r.RunSuite(context.Background(), suite, baseScope(srv))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSuiteAborted))
	require.NotNil(t, res)
	assert.Equal(t, StatusPassed, res.Cases[0].Status)
	assert.Equal(t, StatusErrored, res.Status())
}

func TestRunSuite_SuiteHooksMergeIntoSuiteLayer(t *testing.T) {
	srv := newServer(t)

	login := builtin.Function{
		Name:    "login",
		Returns: builtin.ReturnMapping,
		Fn: func(c *builtin.Call) (any, error) {
			return map[string]any{"token": "suite-token"}, nil
		},
	}
	var seen atomic.Value
	see := builtin.Function{
		Name:   "see",
		Params: []builtin.Param{{Name: "value", Required: true}},
		Fn: func(c *builtin.Call) (any, error) {
			seen.Store(c.String("value"))
			return nil, nil
		},
	}

	r := newTestRunner(t, nil, login, see)
	suite := parseSuite(t, `
config:
  base_url: ${env.BASE_URL}
  setup_hooks:
    - ${login()}
  teardown_hooks:
    - ${see($token)}
cases:
  - steps:
      - request:
          path: /echo
          headers:
            X-Token: ${token}
        validate:
          - eq: [$.token, suite-token]
`)

	res, err := r.RunSuite(context.Background(), suite, baseScope(srv))
	require.NoError(t, err)
	assert.Equal(t, StatusPassed, res.Cases[0].Status)
	assert.Equal(t, "suite-token", seen.Load())
}

func TestRunSuite_SiblingIsolation(t *testing.T) {
	srv := newServer(t)

	remember := builtin.Function{
		Name:    "remember",
		Params:  []builtin.Param{{Name: "n", Required: true}},
		Returns: builtin.ReturnMapping,
		Fn: func(c *builtin.Call) (any, error) {
			time.Sleep(5 * time.Millisecond)
			return map[string]any{"mine": c.Value("n")}, nil
		},
	}

	var sb strings.Builder
	sb.WriteString("config:\n  base_url: ${env.BASE_URL}\ncases:\n")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&sb, `  - config:
      name: case %d
      variables:
        n: %d
      setup_hooks:
        - ${remember($n)}
    steps:
      - request:
          path: /echo
          params:
            n: ${mine}
        validate:
          - eq: [$mine, %d]
          - eq: [$.n, "%d"]
`, i, i, i, i)
	}

	cfg := DefaultConfig()
	cfg.Concurrency = 4
	r := newTestRunner(t, cfg, remember)

	res, err := r.RunSuite(context.Background(), parseSuite(t, sb.String()), baseScope(srv))
	require.NoError(t, err)
	require.Len(t, res.Cases, 12)
	for i, c := range res.Cases {
		assert.Equal(t, fmt.Sprintf("case %d", i), c.Name)
		assert.Equal(t, StatusPassed, c.Status, "case %d: %v", i, c.Steps[0].Error)
	}
	assert.Equal(t, Counts{Passed: 12}, res.CaseCounts())
}

func TestRunSuite_CaseHooks(t *testing.T) {
	srv := newServer(t)
	var teardowns atomic.Int32

	r := newTestRunner(t, nil,
		failing("boom", errors.New("fixture missing")),
		counter("track_teardown", &teardowns),
	)
	suite := parseSuite(t, `
config:
  base_url: ${env.BASE_URL}
cases:
  - config:
      name: setup fails
      setup_hooks:
        - ${boom()}
      teardown_hooks:
        - ${track_teardown()}
    steps:
      - request:
          path: /echo
  - config:
      name: step fails
      setup_hooks:
        - ${case_setup()}
      teardown_hooks:
        - ${track_teardown()}
        - ${case_teardown()}
    steps:
      - request:
          path: /missing
        validate:
          - eq: [status_code, 200]
`)

	res, err := r.RunSuite(context.Background(), suite, baseScope(srv))
	require.NoError(t, err)

	setupFails := res.Cases[0]
	assert.Equal(t, StatusErrored, setupFails.Status)
	require.Error(t, setupFails.Error)
	assert.Contains(t, setupFails.Error.Error(), "case-setup hook boom")
	assert.Equal(t, StateSkipped, setupFails.Steps[0].State)

	assert.Equal(t, StatusFailed, res.Cases[1].Status)
	assert.Equal(t, int32(2), teardowns.Load())
}

func TestRunSuite_CaseTeardownErrorOutranksAssertion(t *testing.T) {
	srv := newServer(t)
	r := newTestRunner(t, nil,
		failing("deny", errs.Assertf("fixture rejected")),
		failing("cleanup", errors.New("connection reset")),
	)
	suite := parseSuite(t, `
config:
  base_url: ${env.BASE_URL}
cases:
  - config:
      name: both fail
      setup_hooks:
        - ${deny()}
      teardown_hooks:
        - ${cleanup()}
    steps:
      - request:
          path: /echo
  - config:
      name: setup assertion only
      setup_hooks:
        - ${deny()}
    steps:
      - request:
          path: /echo
`)

	res, err := r.RunSuite(context.Background(), suite, baseScope(srv))
	require.NoError(t, err)

	both := res.Cases[0]
	assert.Equal(t, StatusErrored, both.Status)
	require.Error(t, both.Error)
	assert.Contains(t, both.Error.Error(), "fixture rejected")
	assert.Contains(t, both.Error.Error(), "connection reset")

	assert.Equal(t, StatusFailed, res.Cases[1].Status)
}

func TestStatusOf(t *testing.T) {
	assertion := errs.Assertf("expected 200")
	external := errs.External("GET /items", errors.New("connection refused"))

	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"assertion", assertion, StatusFailed},
		{"wrapped assertion", fmt.Errorf("case-setup hook deny: %w", assertion), StatusFailed},
		{"external", external, StatusErrored},
		{"plain", errors.New("boom"), StatusErrored},
		{"assertion then external", errors.Join(assertion, external), StatusErrored},
		{"external then assertion", errors.Join(external, assertion), StatusErrored},
		{"assertion then plain", errors.Join(assertion, errors.New("teardown")), StatusErrored},
		{"assertions only", errors.Join(assertion, errs.Assertf("expected body")), StatusFailed},
		{"wrapped join", fmt.Errorf("case: %w", errors.Join(assertion, external)), StatusErrored},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.err))
		})
	}
}

func TestRunSuite_FailFast(t *testing.T) {
	srv := newServer(t)
	r := newTestRunner(t, nil)

	suite := parseSuite(t, `
config:
  base_url: ${env.BASE_URL}
cases:
  - config:
      fail_fast: true
    steps:
      - request:
          path: /missing
        validate:
          - eq: [status_code, 200]
      - request:
          path: /echo
  - steps:
      - request:
          path: /missing
        validate:
          - eq: [status_code, 200]
      - request:
          path: /echo
`)

	res, err := r.RunSuite(context.Background(), suite, baseScope(srv))
	require.NoError(t, err)

	assert.Equal(t, StateSkipped, res.Cases[0].Steps[1].State)
	assert.Contains(t, res.Cases[0].Steps[1].SkipReason, "fail_fast")
	assert.Equal(t, StatePassed, res.Cases[1].Steps[1].State)
	assert.Equal(t, StatusFailed, res.Cases[1].Status)
}

func TestRunSuite_SkipIf(t *testing.T) {
	srv := newServer(t)
	r := newTestRunner(t, nil)

	suite := parseSuite(t, `
config:
  base_url: ${env.BASE_URL}
cases:
  - config:
      name: skipped case
      variables:
        flaky: true
      skip_if: flaky == true
    steps:
      - request:
          path: /echo
  - config:
      name: partly skipped
    steps:
      - name: prod only
        skip_if: env.MODE != "prod"
        request:
          path: /echo
      - name: always
        skip_if: undefined_flag == true
        request:
          path: /echo
  - config:
      name: bad condition
      skip_if: "1 +"
    steps:
      - request:
          path: /echo
`)

	res, err := r.RunSuite(context.Background(), suite, env.NewScope(map[string]string{
		"BASE_URL": srv.URL,
		"MODE":     "staging",
	}))
	require.NoError(t, err)

	assert.Equal(t, StatusSkipped, res.Cases[0].Status)
	assert.Equal(t, "skip_if: flaky == true", res.Cases[0].SkipReason)

	partly := res.Cases[1]
	assert.Equal(t, StateSkipped, partly.Steps[0].State)
	assert.Equal(t, []State{StatePending, StateSkipped}, stepStates(partly.Steps[0]))
	assert.Equal(t, StatePassed, partly.Steps[1].State)
	assert.Equal(t, StatusPassed, partly.Status)

	assert.Equal(t, StatusErrored, res.Cases[2].Status)
}

func TestRunSuite_Filters(t *testing.T) {
	srv := newServer(t)
	suiteYAML := `
config:
  base_url: ${env.BASE_URL}
  tags: [api]
cases:
  - config:
      name: login ok
      tags: [smoke]
    steps:
      - request:
          path: /echo
  - config:
      name: login locked
    steps:
      - request:
          path: /echo
  - config:
      name: orders
      tags: [slow]
    steps:
      - request:
          path: /echo
`

	tests := []struct {
		name    string
		pattern string
		tags    []string
		want    []Status
	}{
		{name: "no filter", want: []Status{StatusPassed, StatusPassed, StatusPassed}},
		{name: "prefix", pattern: "login*", want: []Status{StatusPassed, StatusPassed, StatusSkipped}},
		{name: "contains", pattern: "*lock*", want: []Status{StatusSkipped, StatusPassed, StatusSkipped}},
		{name: "exact", pattern: "orders", want: []Status{StatusSkipped, StatusSkipped, StatusPassed}},
		{name: "case tag", tags: []string{"smoke"}, want: []Status{StatusPassed, StatusSkipped, StatusSkipped}},
		{name: "suite tag", tags: []string{"api"}, want: []Status{StatusPassed, StatusPassed, StatusPassed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.NameFilter = tt.pattern
			cfg.TagsFilter = tt.tags
			r := newTestRunner(t, cfg)

			res, err := r.RunSuite(context.Background(), parseSuite(t, suiteYAML), baseScope(srv))
			require.NoError(t, err)
			var got []Status
			for _, c := range res.Cases {
				got = append(got, c.Status)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunSuite_Bail(t *testing.T) {
	srv := newServer(t)
	cfg := DefaultConfig()
	cfg.Concurrency = 1
	cfg.Bail = true
	r := newTestRunner(t, cfg)

	suite := parseSuite(t, `
config:
  base_url: ${env.BASE_URL}
cases:
  - steps:
      - request:
          path: /echo
  - steps:
      - request:
          path: /missing
        validate:
          - eq: [status_code, 200]
  - steps:
      - request:
          path: /echo
`)

	res, err := r.RunSuite(context.Background(), suite, baseScope(srv))
	require.NoError(t, err)
	assert.Equal(t, StatusPassed, res.Cases[0].Status)
	assert.Equal(t, StatusFailed, res.Cases[1].Status)
	assert.Equal(t, StatusSkipped, res.Cases[2].Status)
	assert.Contains(t, res.Cases[2].SkipReason, "bail")
}

func TestRunSuite_RateLimit(t *testing.T) {
	srv := newServer(t)
	cfg := DefaultConfig()
	cfg.RateLimit = 20
	r := newTestRunner(t, cfg)

	var sb strings.Builder
	sb.WriteString("config:\n  base_url: ${env.BASE_URL}\ncases:\n")
	for i := 0; i < 5; i++ {
		sb.WriteString("  - steps:\n      - request:\n          path: /echo\n")
	}

	start := time.Now()
	res, err := r.RunSuite(context.Background(), parseSuite(t, sb.String()), baseScope(srv))
	require.NoError(t, err)
	assert.Equal(t, 5, res.CaseCounts().Passed)
	// 5 cases at 20/s with a burst of 1 need at least 4 intervals of 50ms.
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestRunSuite_Cancelled(t *testing.T) {
	srv := newServer(t)
	r := newTestRunner(t, nil)

	suite := parseSuite(t, `
config:
  base_url: ${env.BASE_URL}
cases:
  - steps:
      - request:
          path: /slow
`)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := r.RunSuite(ctx, suite, baseScope(srv))
	require.NoError(t, err)
	step := res.Cases[0].Steps[0]
	assert.Equal(t, StateErrored, step.State)
	assert.True(t, errors.Is(step.Error, context.DeadlineExceeded))
}

func TestCheckTemplate(t *testing.T) {
	tests := []struct {
		check string
		want  string
		ok    bool
	}{
		{check: "status_code"},
		{check: "$.data.id"},
		{check: "$"},
		{check: "$[0].id"},
		{check: "$token", want: "${$token}", ok: true},
		{check: "${response.status_code}", want: "${response.status_code}", ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.check, func(t *testing.T) {
			got, ok := checkTemplate(tt.check)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWorst(t *testing.T) {
	tests := []struct {
		in   []Status
		want Status
	}{
		{nil, StatusSkipped},
		{[]Status{StatusSkipped, StatusPassed}, StatusPassed},
		{[]Status{StatusPassed, StatusFailed}, StatusFailed},
		{[]Status{StatusFailed, StatusErrored, StatusPassed}, StatusErrored},
	}
	for _, tt := range tests {
		got := worst(len(tt.in), func(i int) Status { return tt.in[i] })
		assert.Equal(t, tt.want, got)
	}
}

func TestRunner_SharedParserCache(t *testing.T) {
	srv := newServer(t)
	cache := parser.NewCache()

	reg := builtin.NewRegistry()
	require.NoError(t, hooks.Register(reg, hooks.Deps{}))
	reg.Freeze()
	r := NewRunner(eval.New(reg, eval.WithCache(cache)), http.NewClient(), nil, WithParserCache(cache))

	suite := parseSuite(t, `
config:
  base_url: ${env.BASE_URL}
  setup_hooks:
    - ${suite_setup()}
cases:
  - steps:
      - request:
          path: /echo
`)
	_, err := r.RunSuite(context.Background(), suite, baseScope(srv))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cache.Len(), 2)
}
