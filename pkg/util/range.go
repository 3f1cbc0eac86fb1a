package util

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ExpandRange expands a range specification into individual values
// Supports formats like:
//   - "1-5" -> [1, 2, 3, 4, 5]
//   - "1,3,5" -> [1, 3, 5]
//   - "1-3,5,7-9" -> [1, 2, 3, 5, 7, 8, 9]
func ExpandRange(spec string) ([]int, error) {
	if spec == "" {
		return nil, nil
	}

	var result []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if strings.Contains(part, "-") {
			rangeParts := strings.SplitN(part, "-", 2)

			start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
			if err != nil {
				return nil, fmt.Errorf("invalid start value in range %s: %v", part, err)
			}

			end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
			if err != nil {
				return nil, fmt.Errorf("invalid end value in range %s: %v", part, err)
			}

			if start > end {
				return nil, fmt.Errorf("start value %d greater than end value %d in range %s", start, end, part)
			}

			for i := start; i <= end; i++ {
				result = append(result, i)
			}
		} else {
			val, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid value: %s", part)
			}
			result = append(result, val)
		}
	}

	sort.Ints(result)
	return dedupInts(result), nil
}

func dedupInts(sorted []int) []int {
	if len(sorted) == 0 {
		return sorted
	}
	result := []int{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			result = append(result, sorted[i])
		}
	}
	return result
}

// ExpandPortRange expands port selection notation. The range applies to the
// last path segment; bare numbers reuse the base of the previous item.
//
//	"Gi1/0/1-3"          -> [Gi1/0/1 Gi1/0/2 Gi1/0/3]
//	"Gi1/0/1,5,Te1/0/24" -> [Gi1/0/1 Gi1/0/5 Te1/0/24]
func ExpandPortRange(spec string) ([]string, error) {
	var (
		result []string
		base   string
		seen   = make(map[string]bool)
	)

	for _, item := range SplitCommaSeparated(spec) {
		numPart := item
		if idx := strings.LastIndex(item, "/"); idx >= 0 {
			base = item[:idx+1]
			numPart = item[idx+1:]
		} else if base == "" {
			return nil, fmt.Errorf("invalid port range: %s (no port prefix)", item)
		}

		nums, err := ExpandRange(numPart)
		if err != nil {
			return nil, fmt.Errorf("invalid port range %s: %v", item, err)
		}
		for _, n := range nums {
			port := base + strconv.Itoa(n)
			if !seen[port] {
				seen[port] = true
				result = append(result, port)
			}
		}
	}

	return result, nil
}
