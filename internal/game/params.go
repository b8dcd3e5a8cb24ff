package game

import (
	"fmt"
	"strconv"
	"strings"
)

// StringParam extracts a lower-cased string parameter.
func StringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be text", ErrInvalidParam, key)
	}
	return strings.ToLower(strings.TrimSpace(s)), nil
}

// IntParam extracts an integer parameter. Numeric strings are accepted.
func IntParam(params map[string]any, key string) (int, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingParam, key)
	}

	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidParam, key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidParam, key)
	}
}

// ChoiceParam extracts a string parameter that must be one of choices.
func ChoiceParam(params map[string]any, key string, choices ...string) (string, error) {
	s, err := StringParam(params, key)
	if err != nil {
		return "", err
	}
	for _, c := range choices {
		if s == c {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %s must be one of %s", ErrInvalidParam, key, strings.Join(choices, ", "))
}
