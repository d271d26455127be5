package common

import "fmt"

// RequiredString returns the named string argument. Missing, empty and
// non-string values are errors.
func RequiredString(args map[string]interface{}, name string) (string, error) {
	value, ok := args[name].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return value, nil
}

// OptionalString returns the named string argument or def.
func OptionalString(args map[string]interface{}, name, def string) string {
	if value, ok := args[name].(string); ok && value != "" {
		return value
	}
	return def
}
