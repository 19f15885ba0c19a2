package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError independently of its wire code.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindPermission          Kind = "permission"
	KindLimitExceeded       Kind = "limit_exceeded"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindDuplicateMember     Kind = "duplicate_member"
	KindAlreadyVoted        Kind = "already_voted"
	KindExpired             Kind = "expired"
	KindInvariantViolation  Kind = "invariant_violation"
	KindExecution           Kind = "execution"
	KindConflict            Kind = "conflict"
	KindUnauthorized        Kind = "unauthorized"
	KindRateLimited         Kind = "rate_limited"
	KindInternal            Kind = "internal"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, kind Kind, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, kind Kind, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// ---- Input (VAL) ----

// Validation returns a VAL_001 error for malformed or missing input.
func Validation(message string) *AppError {
	return New("VAL_001", KindValidation, message, http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return Validation("amount must be greater than zero")
}

// ---- Lookup (NF) ----

func ErrNotFound(entity string) *AppError {
	return New("NF_001", KindNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Authorization (PERM / AUTH) ----

func ErrPermission(message string) *AppError {
	return New("PERM_001", KindPermission, message, http.StatusForbidden)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_001", KindUnauthorized, "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Ledger rules (LIM / BAL) ----

func ErrLimitExceeded(message string) *AppError {
	return New("LIM_001", KindLimitExceeded, message, http.StatusUnprocessableEntity)
}

func ErrInsufficientBalance() *AppError {
	return New("BAL_001", KindInsufficientBalance, "Insufficient vault balance", http.StatusUnprocessableEntity)
}

// ---- Uniqueness (DUP / VOTE) ----

func ErrDuplicateMember(message string) *AppError {
	return New("DUP_001", KindDuplicateMember, message, http.StatusConflict)
}

func ErrAlreadyVoted() *AppError {
	return New("VOTE_001", KindAlreadyVoted, "Party has already voted on this proposal", http.StatusConflict)
}

// ---- Lifecycle (EXP / INV / EXEC) ----

func ErrExpired() *AppError {
	return New("EXP_001", KindExpired, "Proposal has expired", http.StatusGone)
}

func ErrInvariantViolation(message string) *AppError {
	return New("INV_001", KindInvariantViolation, message, http.StatusConflict)
}

func ErrNotPending(status string) *AppError {
	return New("INV_002", KindInvariantViolation, fmt.Sprintf("Proposal is %s and no longer accepts changes", status), http.StatusConflict)
}

func ErrExecution(err error) *AppError {
	return Wrap("EXEC_001", KindExecution, "Approved transaction failed to execute", http.StatusUnprocessableEntity, err)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", KindRateLimited, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", KindInternal, "Internal server error", http.StatusInternalServerError, err)
}

// ErrConcurrentModification is returned once contention retries are exhausted.
func ErrConcurrentModification(err error) *AppError {
	return Wrap("SYS_002", KindConflict, "Concurrent modification, please retry", http.StatusConflict, err)
}
