package newsharvest

// Prune returns a copy of v with empty values removed: nils, empty
// strings, empty maps and empty slices, recursively. Scalars pass
// through untouched and list order is preserved. Keys named in
// passthrough survive in maps even when their value prunes down to
// nothing. Prune never fails and is idempotent.
func Prune(v any, passthrough ...string) any {
	keep := make(map[string]bool, len(passthrough))
	for _, k := range passthrough {
		keep[k] = true
	}
	out, _ := prune(v, keep)
	return out
}

// prune reports the pruned value and whether it is empty.
func prune(v any, keep map[string]bool) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case string:
		return t, t == ""
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			pruned, empty := prune(child, keep)
			if empty && !keep[k] {
				continue
			}
			out[k] = pruned
		}
		return out, len(out) == 0
	case []any:
		out := make([]any, 0, len(t))
		for _, child := range t {
			pruned, empty := prune(child, keep)
			if empty {
				continue
			}
			out = append(out, pruned)
		}
		return out, len(out) == 0
	case []string:
		out := make([]string, 0, len(t))
		for _, s := range t {
			if s == "" {
				continue
			}
			out = append(out, s)
		}
		return out, len(out) == 0
	case []Fields:
		out := make([]any, 0, len(t))
		for _, child := range t {
			pruned, empty := prune(child, keep)
			if empty {
				continue
			}
			out = append(out, pruned)
		}
		return out, len(out) == 0
	default:
		return v, false
	}
}
