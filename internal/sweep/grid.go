package sweep

import "sort"

// maxCombinations bounds grid expansion so a typo in a values list cannot
// wedge the process for hours.
const maxCombinations = 10000

// GenerateCombinations computes the Cartesian product of all grid value
// lists, in declaration order with the last parameter cycling fastest, and
// merges each point over the base defaults. An empty grid yields exactly
// one combination: the base configuration alone.
func GenerateCombinations(grid []GridParam, base map[string]float64) ([]Combination, error) {
	total := 1
	seen := make(map[string]bool, len(grid))
	for _, p := range grid {
		if p.Name == "" {
			return nil, &ConfigurationError{Field: "grid", Reason: "parameter with empty name"}
		}
		if seen[p.Name] {
			return nil, &ConfigurationError{Field: p.Name, Reason: "parameter swept twice"}
		}
		seen[p.Name] = true
		if len(p.Values) == 0 {
			return nil, &ConfigurationError{Field: p.Name, Reason: "no values to sweep"}
		}
		total *= len(p.Values)
		if total > maxCombinations {
			return nil, &ConfigurationError{Field: "grid", Reason: "grid expands to more than 10000 combinations"}
		}
	}

	combos := make([]Combination, total)
	for i := range combos {
		params := make(map[string]float64, len(base)+len(grid))
		for k, v := range base {
			params[k] = v
		}
		combos[i] = Combination{Index: i, Params: params}
	}

	repeat := 1
	for dim := len(grid) - 1; dim >= 0; dim-- {
		vals := grid[dim].Values
		name := grid[dim].Name
		cycle := len(vals)
		for i := 0; i < total; i++ {
			combos[i].Params[name] = vals[(i/repeat)%cycle]
		}
		repeat *= cycle
	}

	return combos, nil
}

// ParameterColumns returns the parameter column order for flattened
// exports: swept parameters in grid declaration order, then base-only
// parameters sorted by name.
func ParameterColumns(grid []GridParam, base map[string]float64) []string {
	cols := make([]string, 0, len(grid)+len(base))
	swept := make(map[string]bool, len(grid))
	for _, p := range grid {
		cols = append(cols, p.Name)
		swept[p.Name] = true
	}
	rest := make([]string, 0, len(base))
	for name := range base {
		if !swept[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(cols, rest...)
}
