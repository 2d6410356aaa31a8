package engine

// Answers reach the engine either as typed Go values or as whatever
// encoding/json produced for an interface{} (string, bool, []interface{},
// map[string]interface{}). The helpers below accept both and report false on
// any other shape.

func asString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v interface{}) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asStringSlice(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func asStringMap(v interface{}) (map[string]string, bool) {
	switch t := v.(type) {
	case map[string]string:
		return t, true
	case map[string]interface{}:
		out := make(map[string]string, len(t))
		for k, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func asStringSliceMap(v interface{}) (map[string][]string, bool) {
	switch t := v.(type) {
	case map[string][]string:
		return t, true
	case map[string]interface{}:
		out := make(map[string][]string, len(t))
		for k, item := range t {
			if item == nil {
				out[k] = nil
				continue
			}
			s, ok := asStringSlice(item)
			if !ok {
				return nil, false
			}
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func stringSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func sameSet(a, b []string) bool {
	as, bs := stringSet(a), stringSet(b)
	if len(as) != len(bs) {
		return false
	}
	for k := range as {
		if !bs[k] {
			return false
		}
	}
	return true
}
