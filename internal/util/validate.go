package util

import "fmt"

// ValidationError represents a field validation failure.
type ValidationError struct {
	Field   string
	Message string
}

// ValidateRangeFloat checks that a float64 is within bounds.
func ValidateRangeFloat(field string, value, minVal, maxVal float64) *ValidationError {
	if value < minVal || value > maxVal {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be between %.1f and %.1f, got %.1f", field, minVal, maxVal, value),
		}
	}
	return nil
}

// ValidatePort checks that a port number is valid (1-65535).
func ValidatePort(field string, port int) *ValidationError {
	if port < 1 || port > 65535 {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be between 1 and 65535, got %d", field, port),
		}
	}
	return nil
}

// IsConfigured returns true if all provided values are non-empty.
func IsConfigured(values ...string) bool {
	for _, v := range values {
		if v == "" {
			return false
		}
	}
	return true
}
