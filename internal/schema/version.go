package schema

import (
	"strconv"
	"strings"
)

// IsPrevVersion reports whether current is strictly earlier than benchmark.
// Both must be dotted integers (x.y.z). Components are compared pairwise up
// to the shorter of the two, so "1.2" is not previous to "1.2.3".
func IsPrevVersion(current, benchmark string) (bool, error) {
	currentParts := strings.Split(current, ".")
	benchmarkParts := strings.Split(benchmark, ".")

	n := min(len(currentParts), len(benchmarkParts))
	for i := 0; i < n; i++ {
		c, err := parseComponent(current, currentParts[i])
		if err != nil {
			return false, err
		}
		b, err := parseComponent(benchmark, benchmarkParts[i])
		if err != nil {
			return false, err
		}
		if c > b {
			return false, nil
		}
		if c < b {
			return true, nil
		}
	}
	return false, nil
}

// IsAtLeastBenchmarkVersion is the complement of IsPrevVersion.
func IsAtLeastBenchmarkVersion(version, benchmark string) (bool, error) {
	prev, err := IsPrevVersion(version, benchmark)
	if err != nil {
		return false, err
	}
	return !prev, nil
}

// ParseVersion splits a dotted version into its integer components.
func ParseVersion(version string) ([]int, error) {
	parts := strings.Split(version, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := parseComponent(version, p)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func parseComponent(version, component string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(component))
	if err != nil {
		return 0, &ParseError{Version: version, Component: component, Err: err}
	}
	return n, nil
}
