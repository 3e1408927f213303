package env

import (
	"errors"
	"sync"
	"testing"

	"github.com/abdul-hamid-achik/hookspec/packages/core/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	fields map[string]any
}

func (r *record) Index(key string) (any, bool) {
	v, ok := r.fields[key]
	return v, ok
}

func TestScope_LookupOrder(t *testing.T) {
	root := NewScope(map[string]string{"host": "env-host", "APP_SECRET": "s"})
	suite := root.Push(LayerSuite)
	require.NoError(t, suite.Set(LayerSuite, "host", "suite-host"))
	require.NoError(t, suite.Set(LayerSuite, "user", "alice"))

	c := suite.Push(LayerCase)
	require.NoError(t, c.Set(LayerCase, "user", "bob"))

	step := c.Push(LayerStep)
	require.NoError(t, step.Set(LayerStep, "token", "t1"))

	tests := []struct {
		path string
		want any
	}{
		{"host", "suite-host"},
		{"user", "bob"},
		{"token", "t1"},
		{"APP_SECRET", "s"},
		{"env.host", "env-host"},
		{"variables.user", "bob"},
		{"$token", "t1"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := step.Lookup(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := c.Lookup("token")
	var undef *UndefinedVariableError
	require.ErrorAs(t, err, &undef)
	assert.Equal(t, "token", undef.Name)
	assert.Equal(t, errs.KindResolution, errs.KindOf(err))
}

func TestScope_PushIsolation(t *testing.T) {
	suite := NewScope(nil).Push(LayerSuite)
	require.NoError(t, suite.Set(LayerSuite, "shared", 1))

	a := suite.Push(LayerCase)
	b := suite.Push(LayerCase)
	require.NoError(t, a.Set(LayerCase, "x", "a"))
	require.NoError(t, b.Set(LayerCase, "x", "b"))

	got, err := a.Lookup("x")
	require.NoError(t, err)
	assert.Equal(t, "a", got)

	got, err = b.Lookup("x")
	require.NoError(t, err)
	assert.Equal(t, "b", got)

	_, err = suite.Lookup("x")
	assert.Error(t, err)

	step := a.Push(LayerStep)
	require.NoError(t, step.Set(LayerStep, "x", "step"))
	got, _ = a.Lookup("x")
	assert.Equal(t, "a", got)

	// Writes to an outer layer through a child are visible to the parent.
	require.NoError(t, step.Set(LayerCase, "extracted", 42))
	got, err = a.Lookup("extracted")
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestScope_WriteErrors(t *testing.T) {
	root := NewScope(map[string]string{"A": "1"})
	suite := root.Push(LayerSuite)

	tests := []struct {
		name   string
		write  func() error
		target error
	}{
		{"env layer", func() error { return suite.Set(LayerEnv, "A", "2") }, ErrImmutableLayer},
		{"inactive layer", func() error { return suite.Set(LayerStep, "x", 1) }, ErrLayerNotActive},
		{"reserved variables", func() error { return suite.Set(LayerSuite, "variables", 1) }, ErrReservedName},
		{"reserved env", func() error { return suite.Merge(LayerSuite, map[string]any{"ok": 1, "env": 2}) }, ErrReservedName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.write()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}

	_, ok := suite.Get("ok")
	assert.False(t, ok, "rejected merge must not write")
}

func TestScope_Seal(t *testing.T) {
	suite := NewScope(nil).Push(LayerSuite)
	require.NoError(t, suite.Set(LayerSuite, "token", "abc"))
	require.NoError(t, suite.Seal(LayerSuite))

	c := suite.Push(LayerCase)
	err := c.Set(LayerSuite, "token", "other")
	assert.True(t, errors.Is(err, ErrImmutableLayer))

	require.NoError(t, c.Set(LayerCase, "token", "shadow"))
	got, _ := c.Lookup("token")
	assert.Equal(t, "shadow", got)

	got, _ = suite.Lookup("token")
	assert.Equal(t, "abc", got)

	assert.True(t, errors.Is(c.Seal(LayerStep), ErrLayerNotActive))
}

func TestScope_PushOrder(t *testing.T) {
	c := NewScope(nil).Push(LayerCase)
	assert.Panics(t, func() {
		c.Push(LayerSuite)
	})
	assert.NotPanics(t, func() {
		c.Push(LayerStep)
	})
}

func TestScope_Parent(t *testing.T) {
	root := NewScope(map[string]string{"HOST": "local"})
	assert.Nil(t, root.Parent())

	c := root.Push(LayerSuite).Push(LayerCase)
	require.NoError(t, c.Set(LayerCase, "id", 1))

	p := c.Parent()
	require.NotNil(t, p)
	assert.Equal(t, LayerSuite, p.Layer())
	_, ok := p.Get("id")
	assert.False(t, ok)

	// pushing from the parent must not clobber the child's frames
	sibling := p.Push(LayerStep)
	require.NoError(t, sibling.Set(LayerStep, "x", 2))
	got, err := c.Lookup("id")
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.False(t, c.Has(LayerStep))
}

func TestScope_LookupPath(t *testing.T) {
	s := NewScope(nil).Push(LayerStep)
	require.NoError(t, s.Merge(LayerStep, map[string]any{
		"response": &record{fields: map[string]any{
			"status_code": 200,
			"headers":     map[string]string{"Content-Type": "application/json"},
			"body": map[string]any{
				"data": map[string]any{"items": []any{map[string]any{"id": "a1"}}},
			},
		}},
		"ids":  []string{"x", "y"},
		"none": nil,
	}))

	tests := []struct {
		path []string
		want any
	}{
		{[]string{"response", "status_code"}, 200},
		{[]string{"response", "headers", "content-type"}, "application/json"},
		{[]string{"response", "body", "data", "items", "0", "id"}, "a1"},
		{[]string{"ids", "1"}, "y"},
		{[]string{"none"}, nil},
	}

	for _, tt := range tests {
		got, err := s.LookupPath(tt.path)
		require.NoError(t, err, "%v", tt.path)
		assert.Equal(t, tt.want, got)
	}

	failures := []struct {
		path    []string
		segment string
		reason  string
	}{
		{[]string{"response", "missing"}, "missing", "no such field"},
		{[]string{"response", "body", "data", "items", "5"}, "5", "out of range"},
		{[]string{"response", "body", "data", "items", "x"}, "x", "must be an integer"},
		{[]string{"response", "status_code", "x"}, "x", "cannot index int"},
		{[]string{"none", "x"}, "x", "null"},
	}

	for _, tt := range failures {
		_, err := s.LookupPath(tt.path)
		var perr *PathResolutionError
		require.ErrorAs(t, err, &perr, "%v", tt.path)
		assert.Equal(t, tt.segment, perr.Segment)
		assert.Contains(t, perr.Reason, tt.reason)
		assert.Equal(t, tt.path, perr.Path)
		assert.Equal(t, errs.KindResolution, errs.KindOf(err))
	}
}

func TestScope_Snapshot(t *testing.T) {
	root := NewScope(map[string]string{"a": "env"})
	c := root.Push(LayerSuite).Push(LayerCase)
	require.NoError(t, c.Set(LayerCase, "a", "case"))
	require.NoError(t, c.Set(LayerSuite, "b", 2))

	assert.Equal(t, map[string]any{"a": "case", "b": 2}, c.Snapshot())
	assert.Equal(t, map[string]any{"b": 2}, c.LayerSnapshot(LayerSuite))
	assert.Nil(t, c.LayerSnapshot(LayerStep))
	assert.Equal(t, map[string]string{"a": "env"}, c.EnvMap())
}

func TestView(t *testing.T) {
	s := NewScope(map[string]string{"APP_SECRET": "k"}).Push(LayerCase)
	require.NoError(t, s.Set(LayerCase, "count", 3))

	view := s.View()
	got, ok := view.Get("count")
	assert.True(t, ok)
	assert.Equal(t, 3, got)
	assert.Equal(t, "3", view.String("count", ""))
	assert.Equal(t, "fallback", view.String("missing", "fallback"))

	envView := s.EnvView()
	_, ok = envView.Get("count")
	assert.False(t, ok)
	assert.Equal(t, "k", envView.String("APP_SECRET", ""))

	data, err := view.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"APP_SECRET":"k","count":3}`, string(data))
}

func TestScope_ConcurrentBranches(t *testing.T) {
	suite := NewScope(map[string]string{"base": "x"}).Push(LayerSuite)
	require.NoError(t, suite.Set(LayerSuite, "token", "t"))
	require.NoError(t, suite.Seal(LayerSuite))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := suite.Push(LayerCase)
			assert.NoError(t, c.Set(LayerCase, "i", i))
			step := c.Push(LayerStep)
			got, err := step.Lookup("i")
			assert.NoError(t, err)
			assert.Equal(t, i, got)
			tok, err := step.Lookup("token")
			assert.NoError(t, err)
			assert.Equal(t, "t", tok)
		}(i)
	}
	wg.Wait()
}
