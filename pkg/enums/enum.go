package enums

import "fmt"

// parse resolves raw against the allowed set, naming the enum in the error.
func parse[T ~string](name, raw string, allowed []T) (T, error) {
	for _, candidate := range allowed {
		if string(candidate) == raw {
			return candidate, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", name, raw)
}

func contains[T ~string](allowed []T, v T) bool {
	for _, candidate := range allowed {
		if candidate == v {
			return true
		}
	}
	return false
}
