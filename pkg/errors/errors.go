package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors
var (
	ErrLoanNotFound         = errors.New("loan not found")
	ErrLoanAlreadyExists    = errors.New("loan already exists")
	ErrLoanAlreadyPaid      = errors.New("loan is already paid")
	ErrInvalidLoanAmount    = errors.New("invalid loan amount")
	ErrInvalidLoanTerm      = errors.New("invalid loan term")
	ErrInvalidStartDate     = errors.New("invalid start date")
	ErrInvalidDueDate       = errors.New("invalid due date")
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")
	ErrOverpayment          = errors.New("payment exceeds outstanding balance")
	ErrDuplicatePayment     = errors.New("payment already processed")
	ErrActorRequired        = errors.New("receiver identity is required")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidDateRange     = errors.New("invalid date range")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound         = "LOAN_NOT_FOUND"
	ErrCodeLoanAlreadyExists    = "LOAN_ALREADY_EXISTS"
	ErrCodeLoanAlreadyPaid      = "LOAN_ALREADY_PAID"
	ErrCodeInvalidLoanAmount    = "INVALID_LOAN_AMOUNT"
	ErrCodeInvalidLoanTerm      = "INVALID_LOAN_TERM"
	ErrCodeInvalidStartDate     = "INVALID_START_DATE"
	ErrCodeInvalidDueDate       = "INVALID_DUE_DATE"
	ErrCodeInvalidPaymentAmount = "INVALID_PAYMENT_AMOUNT"
	ErrCodeOverpayment          = "OVERPAYMENT"
	ErrCodeDuplicatePayment     = "DUPLICATE_PAYMENT"
	ErrCodeActorRequired        = "ACTOR_REQUIRED"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeInvalidDateRange     = "INVALID_DATE_RANGE"
	ErrCodeDatabaseError        = "DATABASE_ERROR"
	ErrCodeCacheError           = "CACHE_ERROR"
)

var statusByCode = map[string]int{
	ErrCodeLoanNotFound:         http.StatusNotFound,
	ErrCodeLoanAlreadyExists:    http.StatusConflict,
	ErrCodeLoanAlreadyPaid:      http.StatusConflict,
	ErrCodeInvalidLoanAmount:    http.StatusBadRequest,
	ErrCodeInvalidLoanTerm:      http.StatusBadRequest,
	ErrCodeInvalidStartDate:     http.StatusBadRequest,
	ErrCodeInvalidDueDate:       http.StatusBadRequest,
	ErrCodeInvalidPaymentAmount: http.StatusBadRequest,
	ErrCodeOverpayment:          http.StatusBadRequest,
	ErrCodeDuplicatePayment:     http.StatusOK,
	ErrCodeActorRequired:        http.StatusUnauthorized,
	ErrCodeInvalidRequest:       http.StatusBadRequest,
	ErrCodeInvalidDateRange:     http.StatusBadRequest,
	ErrCodeDatabaseError:        http.StatusInternalServerError,
	ErrCodeCacheError:           http.StatusInternalServerError,
}

// HTTPStatus maps an error to the HTTP status code the API responds with
func HTTPStatus(err error) int {
	var businessErr *BusinessError
	if errors.As(err, &businessErr) {
		if status, ok := statusByCode[businessErr.Code]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// IsValidation reports whether err was rejected before any state mutation
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidLoanAmount) ||
		errors.Is(err, ErrInvalidLoanTerm) ||
		errors.Is(err, ErrInvalidStartDate) ||
		errors.Is(err, ErrInvalidDueDate) ||
		errors.Is(err, ErrInvalidPaymentAmount) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidDateRange)
}

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapLoanAlreadyExists(loanNumber string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyExists,
		fmt.Sprintf("Loan with number %s already exists", loanNumber),
		ErrLoanAlreadyExists,
	)
}

func WrapLoanAlreadyPaid(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyPaid,
		fmt.Sprintf("Loan with ID %s is already fully paid", loanID),
		ErrLoanAlreadyPaid,
	)
}

func WrapInvalidLoanAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLoanAmount,
		fmt.Sprintf("Invalid loan amount: %s", amount),
		ErrInvalidLoanAmount,
	)
}

func WrapInvalidLoanTerm(termMonths, minMonths, maxMonths int) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLoanTerm,
		fmt.Sprintf("Loan term %d is outside %d-%d months", termMonths, minMonths, maxMonths),
		ErrInvalidLoanTerm,
	)
}

func WrapInvalidStartDate(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidStartDate,
		fmt.Sprintf("Invalid start date: %s", reason),
		ErrInvalidStartDate,
	)
}

func WrapInvalidDueDate(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidDueDate,
		fmt.Sprintf("Invalid due date: %s", reason),
		ErrInvalidDueDate,
	)
}

func WrapInvalidPaymentAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Invalid payment amount: %s", amount),
		ErrInvalidPaymentAmount,
	)
}

func WrapOverpayment(amount, outstanding string) *BusinessError {
	return NewBusinessError(
		ErrCodeOverpayment,
		fmt.Sprintf("Payment amount %s exceeds outstanding balance %s", amount, outstanding),
		ErrOverpayment,
	)
}

func WrapDuplicatePayment(reference string) *BusinessError {
	return NewBusinessError(
		ErrCodeDuplicatePayment,
		fmt.Sprintf("Payment with reference %s was already processed", reference),
		ErrDuplicatePayment,
	)
}

func WrapActorRequired() *BusinessError {
	return NewBusinessError(
		ErrCodeActorRequired,
		"payments must be stamped with the receiving operator",
		ErrActorRequired,
	)
}

func WrapInvalidRequest(message string, err error) *BusinessError {
	if err == nil {
		err = ErrInvalidRequest
	} else {
		err = fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return NewBusinessError(ErrCodeInvalidRequest, message, err)
}

func WrapInvalidDateRange(from, to string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidDateRange,
		fmt.Sprintf("Date range %s - %s is empty", from, to),
		ErrInvalidDateRange,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
