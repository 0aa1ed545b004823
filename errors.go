package paygate

import (
	"errors"
	"net/http"
)

// Sentinel errors for payment admission.
var (
	// ErrMalformedCredential indicates the X-PAYMENT header could not be decoded.
	ErrMalformedCredential = errors.New("paygate: malformed payment credential")

	// ErrVerificationFailed indicates the credential did not verify.
	ErrVerificationFailed = errors.New("paygate: payment verification failed")

	// ErrSettlementFailed indicates the facilitator could not settle a verified payment.
	ErrSettlementFailed = errors.New("paygate: payment settlement failed")

	// ErrReplayedCredential indicates an on-chain credential was already consumed.
	ErrReplayedCredential = errors.New("paygate: payment credential already consumed")

	// ErrInsufficientAmount indicates the escrowed amount is below the required price.
	ErrInsufficientAmount = errors.New("paygate: insufficient payment amount")

	// ErrResourceNotFound indicates the requested resource is not in the catalog.
	ErrResourceNotFound = errors.New("paygate: resource not found")

	// ErrNoBaseOrigin indicates a relative resource URL with no configured base origin.
	ErrNoBaseOrigin = errors.New("paygate: no base origin configured for relative resource URL")

	// ErrFacilitatorUnavailable indicates the facilitator service is unreachable.
	ErrFacilitatorUnavailable = errors.New("paygate: facilitator service unavailable")

	// ErrChainUnavailable indicates the on-chain payment gateway is unreachable.
	ErrChainUnavailable = errors.New("paygate: payment gateway chain lookup failed")

	// ErrInvalidAmount indicates an invalid atomic-unit amount string.
	ErrInvalidAmount = errors.New("paygate: invalid amount")
)

// ErrorCode classifies admission failures for programmatic handling.
type ErrorCode string

const (
	// CodeMalformedCredential indicates an undecodable payment credential.
	CodeMalformedCredential ErrorCode = "MALFORMED_CREDENTIAL"

	// CodeVerificationFailed indicates the credential did not verify.
	CodeVerificationFailed ErrorCode = "VERIFICATION_FAILED"

	// CodeSettlementFailed indicates settlement of a verified payment failed.
	CodeSettlementFailed ErrorCode = "SETTLEMENT_FAILED"

	// CodeReplayedCredential indicates a credential was already consumed.
	CodeReplayedCredential ErrorCode = "REPLAYED_CREDENTIAL"

	// CodeInsufficientAmount indicates the paid amount is below the price.
	CodeInsufficientAmount ErrorCode = "INSUFFICIENT_AMOUNT"

	// CodeResourceNotFound indicates an unknown resource id.
	CodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"

	// CodeBadRequest indicates a malformed route or request.
	CodeBadRequest ErrorCode = "BAD_REQUEST"

	// CodeConfiguration indicates the gateway is misconfigured.
	CodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// CodeUpstream indicates a collaborator was unreachable or unparseable.
	CodeUpstream ErrorCode = "UPSTREAM_ERROR"

	// CodeInternal indicates an unexpected gateway failure.
	CodeInternal ErrorCode = "INTERNAL_ERROR"
)

// HTTPStatus maps an error code to the HTTP status surfaced to the caller.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeMalformedCredential, CodeBadRequest:
		return http.StatusBadRequest
	case CodeVerificationFailed, CodeSettlementFailed, CodeReplayedCredential, CodeInsufficientAmount:
		return http.StatusPaymentRequired
	case CodeResourceNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// AdmissionError provides structured rejection information. Every admission
// failure is terminal for the current request; nothing is retried internally.
type AdmissionError struct {
	// Code is the error code for programmatic handling.
	Code ErrorCode

	// Message is the human-readable error message.
	Message string

	// Details contains additional error context (e.g., required and
	// received amounts for INSUFFICIENT_AMOUNT).
	Details map[string]interface{}

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *AdmissionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AdmissionError) Unwrap() error {
	return e.Err
}

// NewAdmissionError creates a new AdmissionError with the given code and message.
func NewAdmissionError(code ErrorCode, message string, err error) *AdmissionError {
	return &AdmissionError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetail adds additional context to the error.
// Lazily initializes the Details map if nil.
func (e *AdmissionError) WithDetail(key string, value interface{}) *AdmissionError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}
