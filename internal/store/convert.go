package store

// convert.go maps loosely formatted flag cells onto booleans and the nullable
// column types each backend binds.

import (
	"database/sql"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// parseFlag interprets a flag cell. ok is false for empty or unrecognized input.
func parseFlag(s string) (value, ok bool) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "true", "t", "yes", "y", "1", "pass", "x":
		return true, true
	case "false", "f", "no", "n", "0", "fail":
		return false, true
	default:
		return false, false
	}
}

// ParseBool interprets a flag cell, treating anything unrecognized as false.
func ParseBool(s string) bool {
	v, _ := parseFlag(s)
	return v
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// FromPgText returns the string value, or "" for NULL.
func FromPgText(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// nullableString binds "" as NULL for database/sql.
func nullableString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
