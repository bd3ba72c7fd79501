package blueprint

// validation.go checks a blueprint header against the required column set
// and defines the validation error types shared across the pipeline.
//
// Column validation is a pure subset test: every required name must be
// present, while unknown extra columns are always permitted.

import (
	"fmt"
	"strings"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field name ("name" for the blueprint target name)
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// MissingColumnsError is returned when a header lacks required columns.
type MissingColumnsError struct {
	Missing []string // In required-set order
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// ColumnCheck is the result of validating a header row.
type ColumnCheck struct {
	Valid   bool     `json:"valid"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
}

// Err returns a *MissingColumnsError for an invalid check, nil otherwise.
func (c ColumnCheck) Err() error {
	if c.Valid {
		return nil
	}
	return &MissingColumnsError{Missing: c.Missing}
}

// ValidateColumns reports whether every required name appears in headers.
// Both inputs are expected to be normalized. Missing names are listed in the
// order of required, not header order.
func ValidateColumns(headers []string, required []string) ColumnCheck {
	present := HeaderSet(headers)

	var missing []string
	for _, name := range required {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return ColumnCheck{
			Valid:   false,
			Message: "Validation failed. Missing required columns: " + strings.Join(missing, ", "),
			Missing: missing,
		}
	}
	return ColumnCheck{Valid: true, Message: "CSV headers are valid."}
}
