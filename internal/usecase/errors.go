package usecase

import "errors"

// DomainError is a problem the caller can fix (bad input, unknown client).
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError wraps infrastructure failures (store, transport).
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

func newValidationError(msg string) *DomainError {
	return &DomainError{Code: "VALIDATION_ERROR", Message: msg}
}

func newStoreError(msg string, err error) *TechnicalError {
	return &TechnicalError{Code: "STORE_ERROR", Message: msg, Err: err}
}
