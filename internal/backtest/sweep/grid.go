package sweep

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Grid maps a strategy parameter to the values it takes in a sweep.
type Grid map[string][]any

// Size is the number of combinations of the grid. An empty grid has the
// single combination of the base params.
func (g Grid) Size() int {
	size := 1
	for _, values := range g {
		size *= len(values)
	}

	return size
}

// Expand returns the cartesian product of the grid merged over base. Keys
// are iterated in lexical order and the last key varies fastest, so the
// order only depends on the grid contents. limit caps the number of
// combinations when positive.
func (g Grid) Expand(base strategy.Params, limit int) ([]strategy.Params, error) {
	keys := make([]string, 0, len(g))
	for key, values := range g {
		if len(values) == 0 {
			return nil, errors.Newf(errors.ErrCodeMissingParameter, "grid parameter %s has no values", key)
		}

		keys = append(keys, key)
	}

	sort.Strings(keys)

	total := g.Size()
	if limit > 0 && limit < total {
		total = limit
	}

	combinations := make([]strategy.Params, 0, total)
	indices := make([]int, len(keys))

	for len(combinations) < total {
		params := make(strategy.Params, len(base)+len(keys))
		for key, value := range base {
			params[key] = value
		}

		for i, key := range keys {
			params[key] = g[key][indices[i]]
		}

		combinations = append(combinations, params)

		// odometer increment, rightmost key first
		for i := len(keys) - 1; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(g[keys[i]]) {
				break
			}

			indices[i] = 0
		}
	}

	return combinations, nil
}

// ParseGrid parses key=v1,v2,... flags into a grid.
func ParseGrid(flags []string) (Grid, error) {
	grid := make(Grid, len(flags))

	for _, flag := range flags {
		key, raw, ok := strings.Cut(flag, "=")
		key = strings.TrimSpace(key)

		if !ok || key == "" || strings.TrimSpace(raw) == "" {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "invalid grid parameter %q, expected key=v1,v2", flag)
		}

		for _, value := range strings.Split(raw, ",") {
			grid[key] = append(grid[key], ParseValue(strings.TrimSpace(value)))
		}
	}

	return grid, nil
}

// ParseParams parses key=value flags into strategy params.
func ParseParams(flags []string) (strategy.Params, error) {
	params := make(strategy.Params, len(flags))

	for _, flag := range flags {
		key, raw, ok := strings.Cut(flag, "=")
		key = strings.TrimSpace(key)

		if !ok || key == "" {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "invalid parameter %q, expected key=value", flag)
		}

		params[key] = ParseValue(strings.TrimSpace(raw))
	}

	return params, nil
}

// ParseValue reads an int, float or bool and falls back to the raw string.
func ParseValue(raw string) any {
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}

	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}

	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}

	return raw
}
