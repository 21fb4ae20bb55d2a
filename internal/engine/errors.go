package engine

import (
	"errors"
	"fmt"
)

// EngineError represents a failure reported by an engine operation.
//
// Every lifecycle operation returns a status, never panics. The only
// recovery paths are retry with corrected input or a full reload.
//
// EngineError includes structured fields for diagnostics.
type EngineError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Channel identifies the affected channel, when applicable.
	Channel Channel

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeCapacity indicates the node table, link table or config
	// storage is full. Registration is rejected with no partial effect.
	ErrCodeCapacity ErrorCode = "CAPACITY_EXCEEDED"

	// ErrCodeDuplicateChannel indicates a node already owns the channel.
	ErrCodeDuplicateChannel ErrorCode = "DUPLICATE_CHANNEL"

	// ErrCodeInvalidChannel indicates a zero or out-of-range channel ID.
	ErrCodeInvalidChannel ErrorCode = "INVALID_CHANNEL"

	// ErrCodeUnknownType indicates an unrecognized node type tag,
	// rejected before committing any memory.
	ErrCodeUnknownType ErrorCode = "UNKNOWN_NODE_TYPE"

	// ErrCodeBadReference indicates a link or node references the
	// "no reference" sentinel or an invalid physical index.
	ErrCodeBadReference ErrorCode = "BAD_REFERENCE"

	// ErrCodeNotFound indicates no node or link owns the channel.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeCorrupt indicates recorded counts exceed capacity.
	// Detected by the tick preamble; the whole pass is skipped.
	ErrCodeCorrupt ErrorCode = "TABLE_CORRUPT"

	// ErrCodeTruncated indicates a configuration blob shorter than its
	// own length prefix.
	ErrCodeTruncated ErrorCode = "TRUNCATED_CONFIG"

	// ErrCodeBadConfig indicates a type-specific payload that does not
	// decode or fails validation.
	ErrCodeBadConfig ErrorCode = "INVALID_CONFIG"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Channel != 0 {
		return fmt.Sprintf("%s: %s (channel=%d)", e.Code, e.Message, e.Channel)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf extracts the ErrorCode from an error, or "" if it is not an
// EngineError. Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsCapacityError reports whether the error is a capacity rejection.
func IsCapacityError(err error) bool { return CodeOf(err) == ErrCodeCapacity }

// IsDuplicateError reports whether the error is a duplicate channel rejection.
func IsDuplicateError(err error) bool { return CodeOf(err) == ErrCodeDuplicateChannel }

func errCapacity(what string, capacity int) *EngineError {
	return &EngineError{
		Code:    ErrCodeCapacity,
		Message: fmt.Sprintf("%s full (capacity %d)", what, capacity),
		Details: map[string]string{"capacity": fmt.Sprintf("%d", capacity)},
	}
}

func errDuplicate(ch Channel) *EngineError {
	return &EngineError{
		Code:    ErrCodeDuplicateChannel,
		Message: "a node already owns this channel",
		Channel: ch,
	}
}

func errInvalidChannel(ch Channel, why string) *EngineError {
	return &EngineError{Code: ErrCodeInvalidChannel, Message: why, Channel: ch}
}

func errNotFound(ch Channel) *EngineError {
	return &EngineError{Code: ErrCodeNotFound, Message: "no node owns this channel", Channel: ch}
}
