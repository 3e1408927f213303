package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abdul-hamid-achik/hookspec/packages/core/definition"
	"github.com/abdul-hamid-achik/hookspec/packages/core/env"
	"github.com/abdul-hamid-achik/hookspec/packages/core/eval"
	"github.com/abdul-hamid-achik/hookspec/packages/core/parser"
	"github.com/abdul-hamid-achik/hookspec/packages/http"
	"github.com/abdul-hamid-achik/hookspec/packages/logging"
	"golang.org/x/time/rate"
)

// ErrSuiteAborted is wrapped by RunSuite errors caused by failing suite
// setup or teardown hooks.
var ErrSuiteAborted = errors.New("suite aborted")

// Sender performs the HTTP exchange of a step. *http.Client implements it.
type Sender interface {
	Send(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Runner executes suites.
type Runner struct {
	evaluator  *eval.Evaluator
	sender     Sender
	config     *Config
	cache      *parser.Cache
	conditions *conditions
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used when the run context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithParserCache shares a template cache for hook sources.
func WithParserCache(cache *parser.Cache) Option {
	return func(r *Runner) {
		r.cache = cache
	}
}

// NewRunner returns a Runner. A nil cfg means DefaultConfig.
func NewRunner(evaluator *eval.Evaluator, sender Sender, cfg *Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	r := &Runner{
		evaluator:  evaluator,
		sender:     sender,
		config:     cfg,
		cache:      parser.NewCache(),
		conditions: newConditions(),
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if cfg.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return r
}

// Config returns the runner configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// RunFile loads the suite at path and runs it.
func (r *Runner) RunFile(ctx context.Context, path string, base *env.Scope) (*SuiteResult, error) {
	suite, err := definition.Load(path)
	if err != nil {
		return nil, err
	}
	return r.RunSuite(ctx, suite, base)
}

// suiteRun carries the state shared by every case of one RunSuite call.
type suiteRun struct {
	*Runner
	suite   *definition.Suite
	scope   *env.Scope
	baseURL string
	baseDir string
	logger  *slog.Logger
}

func (s *suiteRun) name() string {
	return s.suite.Config.Name
}

// RunSuite runs one suite on a branch pushed from base. A nil base runs with
// an empty environment.
//
// A failing suite setup hook records every case as skipped and, when
// configured, still runs the suite teardown hooks. A failing suite teardown
// hook is reported too. In both cases the partial result is returned along
// with an error wrapping ErrSuiteAborted.
func (r *Runner) RunSuite(ctx context.Context, suite *definition.Suite, base *env.Scope) (*SuiteResult, error) {
	start := time.Now()
	if base == nil {
		base = env.NewScope(nil)
	}

	root := logging.FromContext(ctx, r.logger)
	logger := logging.ForSuite(root, suite.Config.Name)
	ctx = logging.NewContext(ctx, logger)

	run := &suiteRun{
		Runner:  r,
		suite:   suite,
		scope:   base.Push(env.LayerSuite),
		baseDir: r.config.BaseDir,
		logger:  root,
	}
	if run.baseDir == "" && suite.Path != "" {
		run.baseDir = filepath.Dir(suite.Path)
	}

	result := &SuiteResult{Name: suite.Config.Name, Path: suite.Path}
	logger.Info("suite started", "cases", len(suite.Cases))

	if err := run.setup(ctx); err != nil {
		logger.Error("suite setup failed", "error", err)
		for _, c := range suite.Cases {
			result.Cases = append(result.Cases, skipCase(c, "suite setup failed"))
		}
		result.Error = err
		if r.config.TeardownOnSetupFailure {
			if tdErr := run.teardown(ctx); tdErr != nil {
				logger.Error("suite teardown failed", "error", tdErr)
				result.Error = errors.Join(err, tdErr)
			}
		}
		result.Duration = time.Since(start)
		return result, fmt.Errorf("%w: %s: %w", ErrSuiteAborted, suite.Config.Name, result.Error)
	}

	if err := run.scope.Seal(env.LayerSuite); err != nil {
		return nil, err
	}

	result.Cases = run.runCases(ctx)

	if err := run.teardown(ctx); err != nil {
		logger.Error("suite teardown failed", "error", err)
		result.Error = err
		result.Duration = time.Since(start)
		return result, fmt.Errorf("%w: %s: %w", ErrSuiteAborted, suite.Config.Name, err)
	}

	result.Duration = time.Since(start)
	counts := result.CaseCounts()
	logger.Info("suite finished",
		"passed", counts.Passed,
		"failed", counts.Failed,
		"errored", counts.Errored,
		"skipped", counts.Skipped,
		"duration", result.Duration,
	)
	return result, nil
}

// setup renders the suite variables and base URL, then runs the suite setup
// hooks.
func (s *suiteRun) setup(ctx context.Context) error {
	if err := s.renderVariables(ctx, s.suite.Config.Variables, s.scope, env.LayerSuite); err != nil {
		return fmt.Errorf("suite variables: %w", err)
	}

	s.baseURL = s.config.BaseURL
	if s.suite.Config.BaseURL != "" {
		baseURL, err := s.evaluator.RenderString(ctx, s.suite.Config.BaseURL, s.scope)
		if err != nil {
			return fmt.Errorf("base_url: %w", err)
		}
		s.baseURL = baseURL
	}

	return s.runHooks(ctx, PhaseSuiteSetup, s.suite.Config.SetupHooks, s.scope, nil)
}

// teardown runs the suite teardown hooks on a fresh suite frame seeded with
// the suite variables, since the shared frame is sealed by then.
func (s *suiteRun) teardown(ctx context.Context) error {
	if len(s.suite.Config.TeardownHooks) == 0 {
		return nil
	}
	scope := s.scope.Parent().Push(env.LayerSuite)
	if err := scope.Merge(env.LayerSuite, s.scope.LayerSnapshot(env.LayerSuite)); err != nil {
		return err
	}
	return s.runHooks(ctx, PhaseSuiteTeardown, s.suite.Config.TeardownHooks, scope, nil)
}

// renderVariables renders vars against scope and merges them into layer.
// Variables of one level see the enclosing levels, not each other.
func (s *suiteRun) renderVariables(ctx context.Context, vars map[string]any, scope *env.Scope, layer env.Layer) error {
	if len(vars) == 0 {
		return nil
	}
	rendered := make(map[string]any, len(vars))
	for k, v := range vars {
		out, err := s.evaluator.RenderValue(ctx, v, scope)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		rendered[k] = out
	}
	return scope.Merge(layer, rendered)
}

// runCases runs the selected cases on a bounded worker pool and waits for all
// of them.
func (s *suiteRun) runCases(ctx context.Context) []*CaseResult {
	cases := s.suite.Cases
	results := make([]*CaseResult, len(cases))

	concurrency := s.config.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	sem := make(chan struct{}, concurrency)

	var (
		wg     sync.WaitGroup
		bailed atomic.Bool
	)

	for i, c := range cases {
		if reason := s.filterReason(c); reason != "" {
			results[i] = skipCase(c, reason)
			continue
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				results[i] = &CaseResult{Name: c.Name(), Status: StatusErrored, Error: err}
				continue
			}
		}

		sem <- struct{}{}
		if bailed.Load() {
			<-sem
			results[i] = skipCase(c, "bail: an earlier case did not pass")
			continue
		}

		wg.Add(1)
		go func(i int, c *definition.Case) {
			defer wg.Done()
			defer func() { <-sem }()

			res := s.runCase(ctx, c)
			results[i] = res
			if s.config.Bail && (res.Status == StatusFailed || res.Status == StatusErrored) {
				bailed.Store(true)
			}
		}(i, c)
	}

	wg.Wait()
	return results
}

func (s *suiteRun) filterReason(c *definition.Case) string {
	if s.config.NameFilter != "" && !matchesPattern(c.Name(), s.config.NameFilter) {
		return "filtered out by name"
	}
	if len(s.config.TagsFilter) > 0 && !hasAnyTag(c, s.suite, s.config.TagsFilter) {
		return "filtered out by tags"
	}
	return ""
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}

	if pattern[0] == '*' && pattern[len(pattern)-1] == '*' && len(pattern) > 1 {
		return strings.Contains(name, pattern[1:len(pattern)-1])
	}

	if pattern[0] == '*' {
		return strings.HasSuffix(name, pattern[1:])
	}

	if pattern[len(pattern)-1] == '*' {
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	}

	return name == pattern
}

func hasAnyTag(c *definition.Case, suite *definition.Suite, filters []string) bool {
	for _, filter := range filters {
		if c.HasTag(filter, suite) {
			return true
		}
	}
	return false
}
