package main

import (
	"fmt"
	"strconv"
	"strings"
)

// namedDir is one name=dir flag value.
type namedDir struct {
	Name string
	Dir  string
}

// namedDirs collects repeated name=dir flags.
type namedDirs []namedDir

func (n *namedDirs) String() string {
	parts := make([]string, len(*n))
	for i, d := range *n {
		parts[i] = d.Name + "=" + d.Dir
	}
	return strings.Join(parts, ",")
}

func (n *namedDirs) Set(value string) error {
	name, dir, ok := strings.Cut(value, "=")
	if !ok || name == "" || dir == "" {
		return fmt.Errorf("expected name=dir, got %q", value)
	}
	*n = append(*n, namedDir{Name: name, Dir: dir})
	return nil
}

// parseInts parses a comma separated list such as "32,32,1".
func parseInts(value string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(value, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("invalid integer list %q: %w", value, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseFloats parses a comma separated list such as "0.8,0.8,1.5".
func parseFloats(value string) ([]float64, error) {
	var out []float64
	for _, field := range strings.Split(value, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number list %q: %w", value, err)
		}
		out = append(out, v)
	}
	return out, nil
}
