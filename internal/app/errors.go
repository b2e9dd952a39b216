package app

import "fmt"

// DomainError is an error that already carries its HTTP rendering. The
// service layer returns one for conditions with a response contract of
// their own, such as DUPLICATE_DOCUMENT on upload (Details names the
// existing document) or ACTIVE_JOB_EXISTS on publication create (Details
// names the running job). mapError passes it through unchanged; every
// other error is classified there.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}
