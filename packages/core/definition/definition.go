package definition

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Suite is one loaded suite file.
type Suite struct {
	// Path is the file the suite was loaded from.
	Path   string      `yaml:"-"`
	Config SuiteConfig `yaml:"config"`
	Cases  []*Case     `yaml:"cases"`
}

// SuiteConfig is the config block at the top of a suite file.
type SuiteConfig struct {
	Name          string         `yaml:"name"`
	BaseURL       string         `yaml:"base_url"`
	Variables     map[string]any `yaml:"variables"`
	SetupHooks    []string       `yaml:"setup_hooks"`
	TeardownHooks []string       `yaml:"teardown_hooks"`
	Tags          []string       `yaml:"tags"`
}

// Case is one test case: its config and ordered steps.
type Case struct {
	Config CaseConfig `yaml:"config"`
	Steps  []*Step    `yaml:"steps"`
}

// CaseConfig holds the per-case settings.
type CaseConfig struct {
	Name          string         `yaml:"name"`
	Variables     map[string]any `yaml:"variables"`
	SetupHooks    []string       `yaml:"setup_hooks"`
	TeardownHooks []string       `yaml:"teardown_hooks"`
	Tags          []string       `yaml:"tags"`

	// SkipIf is an expr-lang condition over the case variables.
	SkipIf   string `yaml:"skip_if"`
	FailFast bool   `yaml:"fail_fast"`
}

// Name returns the case name.
func (c *Case) Name() string {
	return c.Config.Name
}

// HasTag reports whether the case carries tag, directly or through the suite.
func (c *Case) HasTag(tag string, suite *Suite) bool {
	for _, t := range c.Config.Tags {
		if t == tag {
			return true
		}
	}
	if suite != nil {
		for _, t := range suite.Config.Tags {
			if t == tag {
				return true
			}
		}
	}
	return false
}

// Step is one request with its hooks, extractions and validations.
type Step struct {
	Name          string            `yaml:"name"`
	Variables     map[string]any    `yaml:"variables"`
	Request       Request           `yaml:"request"`
	SetupHooks    []string          `yaml:"setup_hooks"`
	TeardownHooks []string          `yaml:"teardown_hooks"`
	Extract       map[string]string `yaml:"extract"`
	Validate      []Validation      `yaml:"validate"`
	SkipIf        string            `yaml:"skip_if"`
	Timeout       Duration          `yaml:"timeout"`
}

// Request is the request template of a step. Every string inside may hold
// ${...} expressions.
type Request struct {
	Method  string         `yaml:"method"`
	URL     string         `yaml:"url"`
	Path    string         `yaml:"path"`
	Headers map[string]any `yaml:"headers"`
	Params  map[string]any `yaml:"params"`
	Body    any            `yaml:"body"`
}

// Target returns url, or path when url is empty.
func (r Request) Target() string {
	if r.URL != "" {
		return r.URL
	}
	return r.Path
}

// Validation is one entry of a validate list, written as a one-key mapping
// {comparator: [check, expected]}.
type Validation struct {
	Comparator string
	Check      string
	Expected   any
	Line       int
}

func (v *Validation) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("line %d: validation must be a single {comparator: [check, expected]} entry", node.Line)
	}

	v.Comparator = node.Content[0].Value
	v.Line = node.Line

	var args []any
	if err := node.Content[1].Decode(&args); err != nil {
		return fmt.Errorf("line %d: validation %s: %w", node.Line, v.Comparator, err)
	}
	switch len(args) {
	case 1:
		// exists takes no expected value
	case 2:
		v.Expected = args[1]
	default:
		return fmt.Errorf("line %d: validation %s needs [check, expected], got %d values", node.Line, v.Comparator, len(args))
	}

	check, ok := args[0].(string)
	if !ok {
		return fmt.Errorf("line %d: validation %s: check must be a string, got %T", node.Line, v.Comparator, args[0])
	}
	v.Check = check
	return nil
}

func (v Validation) MarshalYAML() (any, error) {
	return map[string][]any{v.Comparator: {v.Check, v.Expected}}, nil
}

// Duration accepts Go duration strings ("1.5s", "500ms") or a plain number
// of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	s := strings.TrimSpace(node.Value)
	if s == "" {
		*d = 0
		return nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid timeout %q", node.Line, s)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
