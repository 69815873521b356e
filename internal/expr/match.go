package expr

// Match reports whether expression evaluates to true against data. An empty expression
// matches everything; evaluation errors and non-boolean results never match.
// To check a key exists, use "contains(keys(@), '<key-name>')".
func Match(expression string, data any) bool {
	if expression == "" {
		return true
	}
	match, err := EvalAny(expression, data)
	if err != nil {
		return false
	}
	matched, ok := match.(bool)
	if !ok {
		return false
	}
	return matched
}
