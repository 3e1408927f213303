package env

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadDotEnv parses a .env file and returns its key-value pairs. It does not
// touch the process environment.
func LoadDotEnv(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	defer file.Close()

	vars, err := ParseDotEnv(file)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return vars, nil
}

// ParseDotEnv reads KEY=value lines. Blank lines and # comments are skipped,
// an "export " prefix is ignored and values may be single or double quoted.
// Double-quoted values expand \n, \t and \" escapes.
func ParseDotEnv(r io.Reader) (map[string]string, error) {
	result := make(map[string]string)
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}

		result[key] = unquote(strings.TrimSpace(value))
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func unquote(value string) string {
	if len(value) < 2 {
		return value
	}
	first, last := value[0], value[len(value)-1]
	switch {
	case first == '\'' && last == '\'':
		return value[1 : len(value)-1]
	case first == '"' && last == '"':
		r := strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\\`, `\`)
		return r.Replace(value[1 : len(value)-1])
	default:
		return value
	}
}
