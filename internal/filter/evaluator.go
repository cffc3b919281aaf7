package filter

import "strings"

// Matches reports whether a multi-valued element satisfies the
// comparison. Elements are the decoded JSON objects of a multi-valued
// complex attribute; plain (non-object) elements match against the
// element itself when the filter attribute is "value".
func (c *Comparison) Matches(elem any) bool {
	var target any
	switch e := elem.(type) {
	case map[string]any:
		target = lookupFold(e, c.Attribute)
	default:
		if !strings.EqualFold(c.Attribute, "value") {
			return false
		}
		target = elem
	}

	switch c.Op {
	case OpPresent:
		return present(target)
	case OpEqual:
		return equalValues(target, c.Value)
	case OpNotEqual:
		return !equalValues(target, c.Value)
	case OpContains:
		return stringPredicate(target, c.Value, strings.Contains)
	case OpStartsWith:
		return stringPredicate(target, c.Value, strings.HasPrefix)
	}
	return false
}

func present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	}
	return true
}

// equalValues compares per attribute semantics: strings fold case,
// numbers compare as float64, everything else compares directly.
func equalValues(a, b any) bool {
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		return ok && strings.EqualFold(sa, sb)
	}
	if na, ok := toFloat(a); ok {
		nb, ok := toFloat(b)
		return ok && na == nb
	}
	return a == b
}

func stringPredicate(a, b any, pred func(string, string) bool) bool {
	sa, ok := a.(string)
	if !ok {
		return false
	}
	sb, ok := b.(string)
	if !ok {
		return false
	}
	return pred(strings.ToLower(sa), strings.ToLower(sb))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func lookupFold(obj map[string]any, name string) any {
	if v, ok := obj[name]; ok {
		return v
	}
	for key, v := range obj {
		if strings.EqualFold(key, name) {
			return v
		}
	}
	return nil
}
