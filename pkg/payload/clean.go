package payload

// Clean removes empty strings, nils and empty collections from body,
// recursing into nested maps and lists. Objects and lists that become empty
// are removed too. The returned map is never nil.
func Clean(body map[string]any) map[string]any {
	out := map[string]any{}
	for key, value := range body {
		if cleaned, ok := cleanValue(value); ok {
			out[key] = cleaned
		}
	}
	return out
}

func cleanValue(value any) (any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case string:
		return v, v != ""
	case map[string]any:
		cleaned := Clean(v)
		return cleaned, len(cleaned) > 0
	case []any:
		var items []any
		for _, item := range v {
			if cleaned, ok := cleanValue(item); ok {
				items = append(items, cleaned)
			}
		}
		return items, len(items) > 0
	case []string:
		var items []string
		for _, item := range v {
			if item != "" {
				items = append(items, item)
			}
		}
		return items, len(items) > 0
	case []map[string]any:
		var items []any
		for _, item := range v {
			if cleaned := Clean(item); len(cleaned) > 0 {
				items = append(items, cleaned)
			}
		}
		return items, len(items) > 0
	case map[string]string:
		cleaned := map[string]any{}
		for k, s := range v {
			if s != "" {
				cleaned[k] = s
			}
		}
		return cleaned, len(cleaned) > 0
	default:
		return v, true
	}
}
