package search

import "strings"

// FilterByAmenities keeps items whose "amenities" list contains every required
// amenity, compared case-insensitively.
func FilterByAmenities(items []map[string]any, required []string) []map[string]any {
	if len(required) == 0 {
		return items
	}

	filtered := make([]map[string]any, 0, len(items))
	for _, item := range items {
		have := make(map[string]bool)
		for _, a := range stringList(item["amenities"]) {
			have[strings.ToLower(a)] = true
		}

		ok := true
		for _, r := range required {
			if !have[strings.ToLower(r)] {
				ok = false
				break
			}
		}
		if ok {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// FilterBySkills keeps jobs whose description mentions every skill, case-insensitively.
func FilterBySkills(jobs []map[string]any, skills []string) []map[string]any {
	if len(skills) == 0 {
		return jobs
	}

	filtered := make([]map[string]any, 0, len(jobs))
	for _, job := range jobs {
		desc, _ := job["description"].(string)
		desc = strings.ToLower(desc)

		ok := true
		for _, s := range skills {
			if !strings.Contains(desc, strings.ToLower(s)) {
				ok = false
				break
			}
		}
		if ok {
			filtered = append(filtered, job)
		}
	}
	return filtered
}

// Limit returns the first n items. n <= 0 means no limit.
func Limit[T any](items []T, n int) []T {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[:n]
}

// Objects converts a decoded JSON array into a slice of objects, skipping
// anything that is not an object.
func Objects(v any) []map[string]any {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func stringList(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
