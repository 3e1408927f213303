package definition

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/hookspec/packages/assertions"
	"gopkg.in/yaml.v3"
)

// ErrInvalidSuite wraps every structural error found while loading.
var ErrInvalidSuite = errors.New("invalid suite")

// Load reads and parses a suite file.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

// Parse decodes a suite. name is used in error messages and as Suite.Path.
func Parse(data []byte, name string) (*Suite, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	suite := &Suite{}
	if err := dec.Decode(suite); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w: file is empty", name, ErrInvalidSuite)
		}
		return nil, fmt.Errorf("%s: %w: %v", name, ErrInvalidSuite, err)
	}
	suite.Path = name

	if err := suite.normalize(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, ErrInvalidSuite, err)
	}
	return suite, nil
}

func (s *Suite) normalize() error {
	if s.Config.Name == "" {
		base := filepath.Base(s.Path)
		s.Config.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := checkHooks("config", s.Config.SetupHooks, s.Config.TeardownHooks); err != nil {
		return err
	}
	if len(s.Cases) == 0 {
		return errors.New("no cases defined")
	}

	for i, c := range s.Cases {
		if c == nil {
			return fmt.Errorf("cases[%d]: empty case", i)
		}
		where := fmt.Sprintf("cases[%d]", i)
		if c.Config.Name == "" {
			c.Config.Name = fmt.Sprintf("case %d", i+1)
		}
		if err := checkHooks(where, c.Config.SetupHooks, c.Config.TeardownHooks); err != nil {
			return err
		}
		if len(c.Steps) == 0 {
			return fmt.Errorf("%s (%s): no steps defined", where, c.Config.Name)
		}
		for j, st := range c.Steps {
			if st == nil {
				return fmt.Errorf("%s.steps[%d]: empty step", where, j)
			}
			if err := st.normalize(fmt.Sprintf("%s.steps[%d]", where, j), j); err != nil {
				return err
			}
		}
	}
	return nil
}

func (st *Step) normalize(where string, index int) error {
	if st.Name == "" {
		st.Name = fmt.Sprintf("step %d", index+1)
	}
	if st.Request.Target() == "" {
		return fmt.Errorf("%s (%s): request url or path is required", where, st.Name)
	}
	if st.Request.URL != "" && st.Request.Path != "" {
		return fmt.Errorf("%s (%s): request url and path are mutually exclusive", where, st.Name)
	}
	if st.Request.Method == "" {
		st.Request.Method = "GET"
	}
	st.Request.Method = strings.ToUpper(st.Request.Method)

	if err := checkHooks(where, st.SetupHooks, st.TeardownHooks); err != nil {
		return err
	}
	for name := range st.Extract {
		if name == "" {
			return fmt.Errorf("%s (%s): extract name is empty", where, st.Name)
		}
	}
	for k, v := range st.Validate {
		if _, err := assertions.ParseComparator(v.Comparator); err != nil {
			return fmt.Errorf("%s (%s): validate[%d]: %v", where, st.Name, k, err)
		}
	}
	if st.Timeout < 0 {
		return fmt.Errorf("%s (%s): timeout must not be negative", where, st.Name)
	}
	return nil
}

func checkHooks(where string, lists ...[]string) error {
	for _, hooks := range lists {
		for i, h := range hooks {
			if strings.TrimSpace(h) == "" {
				return fmt.Errorf("%s: hook %d is empty", where, i)
			}
		}
	}
	return nil
}

// IsSuiteFile reports whether path has a suite file extension.
func IsSuiteFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Discover expands files and directories into a sorted list of suite files.
// Directories are walked recursively; explicitly named files are kept
// whatever their extension.
func Discover(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if !info.IsDir() {
			if !seen[arg] {
				seen[arg] = true
				files = append(files, arg)
			}
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if IsSuiteFile(path) && !isConfigFile(path) && !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

func isConfigFile(path string) bool {
	base := strings.TrimPrefix(filepath.Base(path), ".")
	return strings.HasPrefix(base, "hookspec.")
}
