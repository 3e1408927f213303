package assertions

import (
	"fmt"
	"strings"
)

// Comparator identifies a validation operator.
type Comparator int

const (
	OpEquals Comparator = iota
	OpNotEquals
	OpGreaterThan
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
	OpContains
	OpNotContains
	OpStartsWith
	OpEndsWith
	OpRegex
	OpLengthEquals
	OpIn
	OpNotIn
	OpType
	OpExists
	OpSchema
)

var comparatorNames = map[Comparator]string{
	OpEquals:         "eq",
	OpNotEquals:      "ne",
	OpGreaterThan:    "gt",
	OpGreaterOrEqual: "ge",
	OpLessThan:       "lt",
	OpLessOrEqual:    "le",
	OpContains:       "contains",
	OpNotContains:    "not_contains",
	OpStartsWith:     "startswith",
	OpEndsWith:       "endswith",
	OpRegex:          "regex",
	OpLengthEquals:   "len_eq",
	OpIn:             "in",
	OpNotIn:          "not_in",
	OpType:           "type",
	OpExists:         "exists",
	OpSchema:         "schema",
}

var comparatorAliases = map[string]Comparator{
	"equals":       OpEquals,
	"equal":        OpEquals,
	"==":           OpEquals,
	"not_equal":    OpNotEquals,
	"!=":           OpNotEquals,
	">":            OpGreaterThan,
	">=":           OpGreaterOrEqual,
	"<":            OpLessThan,
	"<=":           OpLessOrEqual,
	"starts_with":  OpStartsWith,
	"ends_with":    OpEndsWith,
	"matches":      OpRegex,
	"regex_match":  OpRegex,
	"length_equal": OpLengthEquals,
	"len":          OpLengthEquals,
	"type_match":   OpType,
}

func (c Comparator) String() string {
	if name, ok := comparatorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Comparator(%d)", int(c))
}

// ParseComparator resolves a comparator name or one of its aliases.
func ParseComparator(name string) (Comparator, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for c, n := range comparatorNames {
		if n == key {
			return c, nil
		}
	}
	if c, ok := comparatorAliases[key]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown comparator %q", name)
}

// Comparators returns the canonical comparator names.
func Comparators() []string {
	names := make([]string, 0, len(comparatorNames))
	for c := OpEquals; c <= OpSchema; c++ {
		names = append(names, comparatorNames[c])
	}
	return names
}
