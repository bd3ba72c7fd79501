package blueprint

// # Error Codes Reference
//
// This file maps technical errors to user-friendly messages with codes for
// support reference. Operators can quote the code to support staff for
// faster diagnosis.
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Missing columns: Required columns are missing from the CSV
//	         Action: Add the listed columns and upload again
//	         Patterns: "missing required columns"
//
//	VAL002 - Name required: A blueprint name is required
//	         Action: Enter a name for this blueprint
//	         Patterns: "name is required"
//
//	VAL003 - Bad request: The request body could not be read
//	         Action: Check the request format and try again
//	         Patterns: "invalid json body"
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Name collision: Another equipment group already uses this name
//	         Action: Choose a different equipment name
//	         Patterns: "already exists" (rename)
//
//	SES002 - Not found: The group or item no longer exists
//	         Action: Refresh the blueprint and try again
//	         Patterns: "session group not found", "session item not found"
//
//	SES003 - Read-only field: This field cannot be edited
//	         Action: Only descriptive fields may be changed
//	         Patterns: "cannot be edited"
//
//	SES004 - Unknown field: The field does not exist on this item
//	         Action: Check the field name
//	         Patterns: "unknown field"
//
//	SES005 - Session expired: Editing session not found
//	         Action: Upload the file again to start a new session
//	         Patterns: "session not found"
//
//	SES006 - Capacity: Too many editing sessions are open
//	         Action: Finish or discard an open blueprint and try again
//	         Patterns: "too many open sessions"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large    Patterns: "file too large"
//	FILE002 - Wrong type        Patterns: "invalid file type"
//	FILE003 - Empty file        Patterns: "empty file"
//	FILE004 - No file           Patterns: "no file provided"
//
// # Submission Errors (SUB001-SUB099)
//
//	SUB001 - Name taken: A blueprint with this name already exists
//	         Action: Choose another name or check the override option
//	         Patterns: "blueprint name already exists"
//
//	SUB002 - In flight: A submission is already in progress
//	         Action: Wait for the current submission to finish
//	         Patterns: "already in progress"
//
//	SUB003 - Busy: Too many submissions in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many submissions"
//
// # Backend Errors (NET001-NET099)
//
//	NET001 - Backend failure: The server could not complete the request
//	         Action: Please try again
//	         Patterns: "backend request failed"
//
//	NET002 - Malformed response: The server returned an unexpected response
//	         Action: Please try again or contact support
//	         Patterns: "malformed response"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// Patterns are matched case-insensitively using strings.Contains and the
// first match wins, so more specific patterns come first.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Submission errors come before the session collision pattern because
	// both mention "already exists".
	{
		pattern: "blueprint name already exists",
		msg: UserMessage{
			Message: "A blueprint with this name already exists",
			Action:  "Choose another name or check the override option",
			Code:    "SUB001",
		},
	},
	{
		pattern: "already in progress",
		msg: UserMessage{
			Message: "A submission is already in progress",
			Action:  "Wait for the current submission to finish",
			Code:    "SUB002",
		},
	},
	{
		pattern: "too many submissions",
		msg: UserMessage{
			Message: "System is busy processing other submissions",
			Action:  "Please wait a moment and try again",
			Code:    "SUB003",
		},
	},

	{
		pattern: "missing required columns",
		msg: UserMessage{
			Message: "Required columns are missing from the CSV",
			Action:  "Add the listed columns and upload again",
			Code:    "VAL001",
		},
	},
	{
		pattern: "name is required",
		msg: UserMessage{
			Message: "A blueprint name is required",
			Action:  "Enter a name for this blueprint",
			Code:    "VAL002",
		},
	},

	{
		pattern: "invalid json body",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the request format and try again",
			Code:    "VAL003",
		},
	},

	{
		pattern: "already exists",
		msg: UserMessage{
			Message: "Another equipment group already uses this name",
			Action:  "Choose a different equipment name",
			Code:    "SES001",
		},
	},
	{
		pattern: "session group not found",
		msg: UserMessage{
			Message: "The equipment group or section no longer exists",
			Action:  "Refresh the blueprint and try again",
			Code:    "SES002",
		},
	},
	{
		pattern: "session item not found",
		msg: UserMessage{
			Message: "The inspection item no longer exists",
			Action:  "Refresh the blueprint and try again",
			Code:    "SES002",
		},
	},
	{
		pattern: "cannot be edited",
		msg: UserMessage{
			Message: "This field cannot be edited",
			Action:  "Only descriptive fields may be changed",
			Code:    "SES003",
		},
	},
	{
		pattern: "unknown field",
		msg: UserMessage{
			Message: "The field does not exist on this item",
			Action:  "Check the field name",
			Code:    "SES004",
		},
	},
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Editing session not found",
			Action:  "Upload the file again to start a new session",
			Code:    "SES005",
		},
	},
	{
		pattern: "too many open sessions",
		msg: UserMessage{
			Message: "Too many editing sessions are open",
			Action:  "Finish or discard an open blueprint and try again",
			Code:    "SES006",
		},
	},

	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the blueprint into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid file type",
		msg: UserMessage{
			Message: "Only CSV files are allowed",
			Action:  "Export the blueprint as .csv and try again",
			Code:    "FILE002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with a header row",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},

	{
		pattern: "malformed response",
		msg: UserMessage{
			Message: "The server returned an unexpected response",
			Action:  "Please try again or contact support",
			Code:    "NET002",
		},
	},
	{
		pattern: "backend request failed",
		msg: UserMessage{
			Message: "The server could not complete the request",
			Action:  "Please try again",
			Code:    "NET001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the ERR000 fallback if no pattern matches, and an empty message for nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// generic fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
