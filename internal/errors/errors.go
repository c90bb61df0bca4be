package errors

import (
	"errors"
	"fmt"
	"time"
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

// Is enables errors.Is() comparison for NotFoundError
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	if !ok {
		return false
	}
	return e.Entity == t.Entity
}

// NotAuthorizedError represents an authorization failure: the caller is
// known but is not allowed to perform the operation.
type NotAuthorizedError struct {
	Message string
}

func (e *NotAuthorizedError) Error() string {
	return e.Message
}

// Is enables errors.Is() comparison for NotAuthorizedError
func (e *NotAuthorizedError) Is(target error) bool {
	t, ok := target.(*NotAuthorizedError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// ConflictError represents a state or invariant violation: duplicate pending
// request, capacity exceeded, wrong request status, deleted team.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// Is enables errors.Is() comparison for ConflictError
func (e *ConflictError) Is(target error) bool {
	t, ok := target.(*ConflictError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// TooFrequentError is returned when a lease could not be acquired or an
// operation hits a cooldown window. The operation is safe to retry after
// RetryAfter.
type TooFrequentError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *TooFrequentError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// InvalidInputError represents malformed caller arguments, detected before
// any state is touched.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid input: %s - %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid input: %s", e.Message)
}

// InternalError represents an infrastructure fault (store, lock service),
// possibly after partial work. It wraps the underlying cause.
type InternalError struct {
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Entity Not Found Errors
var (
	ErrTeamNotFound    = &NotFoundError{Entity: "team"}
	ErrUserNotFound    = &NotFoundError{Entity: "user"}
	ErrRequestNotFound = &NotFoundError{Entity: "join request"}
)

// Conflict Errors
var (
	ErrTeamDeleted        = &ConflictError{Message: "team has been deleted"}
	ErrTeamExpired        = &ConflictError{Message: "team has expired"}
	ErrTeamFull           = &ConflictError{Message: "team is full"}
	ErrTeamNotPrivate     = &ConflictError{Message: "team does not accept join applications"}
	ErrAlreadyMember      = &ConflictError{Message: "user is already a member of this team"}
	ErrNotMember          = &ConflictError{Message: "user is not a member of this team"}
	ErrRequestNotPending  = &ConflictError{Message: "join request has already been decided"}
	ErrRequestExpired     = &ConflictError{Message: "join request has expired"}
	ErrPendingApplication = &ConflictError{Message: "user already has a pending application for this team"}
	ErrPendingInvite      = &ConflictError{Message: "user already has a pending invite for this team"}
	ErrWrongPassword      = &ConflictError{Message: "team password does not match"}
)

// Authorization Errors
var (
	ErrNotLeader       = &NotAuthorizedError{Message: "only the team leader may perform this operation"}
	ErrNotTeamMember   = &NotAuthorizedError{Message: "only team members may perform this operation"}
	ErrNotInvitee      = &NotAuthorizedError{Message: "only the invited user may decide this invite"}
	ErrNotRequestParty = &NotAuthorizedError{Message: "no permission to act on this join request"}
)

// Helper Functions

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// IsNotAuthorized checks if an error is a NotAuthorizedError
func IsNotAuthorized(err error) bool {
	var authErr *NotAuthorizedError
	return errors.As(err, &authErr)
}

// IsConflict checks if an error is a ConflictError
func IsConflict(err error) bool {
	var conflictErr *ConflictError
	return errors.As(err, &conflictErr)
}

// IsTooFrequent checks if an error is a TooFrequentError
func IsTooFrequent(err error) bool {
	var tooFrequentErr *TooFrequentError
	return errors.As(err, &tooFrequentErr)
}

// IsInvalidInput checks if an error is an InvalidInputError
func IsInvalidInput(err error) bool {
	var invalidErr *InvalidInputError
	return errors.As(err, &invalidErr)
}

// IsInternal checks if an error is an InternalError
func IsInternal(err error) bool {
	var internalErr *InternalError
	return errors.As(err, &internalErr)
}

// NewNotFoundError creates a new NotFoundError for a custom entity
func NewNotFoundError(entity string) error {
	return &NotFoundError{Entity: entity}
}

// NewNotAuthorizedError creates a new NotAuthorizedError
func NewNotAuthorizedError(message string) error {
	return &NotAuthorizedError{Message: message}
}

// NewConflictError creates a new ConflictError
func NewConflictError(message string) error {
	return &ConflictError{Message: message}
}

// NewTooFrequentError creates a new TooFrequentError with a retry hint
func NewTooFrequentError(message string, retryAfter time.Duration) error {
	return &TooFrequentError{Message: message, RetryAfter: retryAfter}
}

// NewInvalidInputError creates a new InvalidInputError
func NewInvalidInputError(field, message string) error {
	return &InvalidInputError{Field: field, Message: message}
}

// NewInternalError wraps an infrastructure fault
func NewInternalError(message string, err error) error {
	return &InternalError{Message: message, Err: err}
}

// RetryAfter extracts the retry hint from a TooFrequentError, or zero.
func RetryAfter(err error) time.Duration {
	var tooFrequentErr *TooFrequentError
	if errors.As(err, &tooFrequentErr) {
		return tooFrequentErr.RetryAfter
	}
	return 0
}
