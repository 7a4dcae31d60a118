package core

// error_messages.go maps technical errors to user-facing messages with a
// support code. Users quote the code; support looks it up here.
//
// Codes by category:
//
//	FILE001-FILE099  the uploaded file (size, type, content, header)
//	IMP001-IMP099    batch-level import failures
//	VAL001-VAL099    row-level validation
//	DB001-DB099      storage
//	AUTH001-AUTH099  caller identity
//	UPL001-UPL099    upload lifecycle (busy, cancelled, timeout)
//	RATE001          request throttling
//	ERR000           fallback; check the logs for the technical error
//
// Typed errors from this package are matched first with errors.Is/As. Other
// errors are matched case-insensitively by substring; the first pattern wins,
// so specific patterns come before general ones.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the user list into smaller files",
		Code:    "FILE001",
	}
	msgUnsupportedFile = UserMessage{
		Message: "File could not be read as a spreadsheet",
		Action:  "Upload an .xlsx workbook or a UTF-8 .csv file",
		Code:    "FILE002",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Add a header row and at least one user",
		Code:    "FILE003",
	}
	msgNoFile = UserMessage{
		Message: "No file was provided",
		Action:  "Attach the spreadsheet in the \"file\" field",
		Code:    "FILE004",
	}
	msgNoHeader = UserMessage{
		Message: "Header row not found",
		Action:  "Download the import template and keep its column names",
		Code:    "FILE005",
	}
	msgBatchAborted = UserMessage{
		Message: "Import was aborted and no users were saved",
		Action:  "Please try again; if it keeps failing, contact support",
		Code:    "IMP001",
	}
	msgTooManyImports = UserMessage{
		Message: "Too many imports in progress",
		Action:  "Please wait a moment and try again",
		Code:    "UPL001",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL002",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "UPL003",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
var errorPatterns = []errorPattern{
	// Row validation
	{
		pattern: "is required",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Fill in username, email, fullName and password for every user",
			Code:    "VAL001",
		},
	},
	{
		pattern: "is not recognized",
		msg: UserMessage{
			Message: "Role is not recognized",
			Action:  "Use one of: user, student, doctor, admin",
			Code:    "VAL002",
		},
	},
	{
		pattern: "already exists",
		msg: UserMessage{
			Message: "A user with this value already exists",
			Action:  "Remove or change the duplicate entry",
			Code:    "VAL003",
		},
	},
	{
		pattern: "allowed_features",
		msg: UserMessage{
			Message: "Allowed features must be a JSON list",
			Action:  `Write the value like ["reports","grades"] or leave it empty`,
			Code:    "VAL004",
		},
	},

	// Storage
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this value already exists",
			Action:  "Remove the duplicate entry and import again",
			Code:    "DB001",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Please contact support",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},

	// Identity
	{
		pattern: "missing bearer token",
		msg: UserMessage{
			Message: "Authentication required",
			Action:  "Sign in and try again",
			Code:    "AUTH001",
		},
	},
	{
		pattern: "invalid token",
		msg: UserMessage{
			Message: "Your session is invalid or expired",
			Action:  "Sign in again",
			Code:    "AUTH002",
		},
	},

	// Throttling
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the zero UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := mapTyped(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func mapTyped(err error) (UserMessage, bool) {
	var (
		fe    *FormatError
		fatal *BatchFatalError
	)
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return msgFileTooLarge, true
	case errors.Is(err, ErrNoFile):
		return msgNoFile, true
	case errors.Is(err, ErrEmptyFile):
		return msgEmptyFile, true
	case errors.Is(err, ErrNoHeader):
		return msgNoHeader, true
	case errors.As(err, &fe):
		return msgUnsupportedFile, true
	case errors.Is(err, ErrTooManyImports):
		return msgTooManyImports, true
	case errors.As(err, &fatal):
		return msgBatchAborted, true
	case errors.Is(err, context.Canceled):
		return msgCancelled, true
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout, true
	}
	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
