package definition

import (
	"fmt"
	"sort"
	"strings"
)

// TemplateRef locates one template string inside a suite.
type TemplateRef struct {
	Location string
	Source   string

	// Hook is set for setup and teardown hook entries, which must be a single
	// call expression.
	Hook bool
}

// Templates lists every hook and every string holding a ${...} expression,
// in file order.
func (s *Suite) Templates() []TemplateRef {
	var refs []TemplateRef

	addHooks := func(where, kind string, hooks []string) {
		for i, h := range hooks {
			refs = append(refs, TemplateRef{
				Location: fmt.Sprintf("%s.%s[%d]", where, kind, i),
				Source:   h,
				Hook:     true,
			})
		}
	}
	addValue := func(where string, v any) {
		walkStrings(where, v, func(loc, str string) {
			if strings.Contains(str, "${") {
				refs = append(refs, TemplateRef{Location: loc, Source: str})
			}
		})
	}

	addValue("config.base_url", s.Config.BaseURL)
	addValue("config.variables", s.Config.Variables)
	addHooks("config", "setup_hooks", s.Config.SetupHooks)
	addHooks("config", "teardown_hooks", s.Config.TeardownHooks)

	for i, c := range s.Cases {
		cw := fmt.Sprintf("cases[%d]", i)
		addValue(cw+".config.variables", c.Config.Variables)
		addHooks(cw+".config", "setup_hooks", c.Config.SetupHooks)
		addHooks(cw+".config", "teardown_hooks", c.Config.TeardownHooks)

		for j, st := range c.Steps {
			sw := fmt.Sprintf("%s.steps[%d]", cw, j)
			addValue(sw+".variables", st.Variables)
			addHooks(sw, "setup_hooks", st.SetupHooks)
			addValue(sw+".request.method", st.Request.Method)
			addValue(sw+".request.url", st.Request.Target())
			addValue(sw+".request.headers", st.Request.Headers)
			addValue(sw+".request.params", st.Request.Params)
			addValue(sw+".request.body", st.Request.Body)
			addHooks(sw, "teardown_hooks", st.TeardownHooks)
			for k, v := range st.Validate {
				vw := fmt.Sprintf("%s.validate[%d]", sw, k)
				addValue(vw+".check", v.Check)
				addValue(vw+".expected", v.Expected)
			}
		}
	}
	return refs
}

// walkStrings calls fn for every string leaf of v. Map keys are visited in
// sorted order.
func walkStrings(loc string, v any, fn func(loc, s string)) {
	switch v := v.(type) {
	case string:
		fn(loc, v)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkStrings(loc+"."+k, v[k], fn)
		}
	case []any:
		for i, item := range v {
			walkStrings(fmt.Sprintf("%s[%d]", loc, i), item, fn)
		}
	}
}
