// Package service implements the work-item and subscription business logic
// on top of the stores, with event fan-out through the notifier.
package service

// Warning texts appended to anomalous responses. The vocabulary is fixed;
// handlers emit them as Warning: 299 headers.
const (
	WarnUpdatedWithModifications = "The Workitem was updated with modifications"
	WarnNotClaimed               = "The target URI did not reference a claimed Workitem"
	WarnInconsistentWithWorkitem = "The submitted request is inconsistent with the current state of the Workitem"
	WarnTransactionUIDMissing    = "The Transaction UID is missing"
	WarnTransactionUIDIncorrect  = "The Transaction UID is incorrect"
	WarnInconsistentWithInstance = "The submitted request is inconsistent with the state of the UPS Instance"
	WarnAlreadyCompleted         = "The UPS is already in the requested state of COMPLETED"
	WarnAlreadyCanceled          = "The UPS is already in the requested state of CANCELED"
)

// ServiceError is the error contract between services and handlers.
type ServiceError struct {
	Code     string // INVALID_ARGUMENT, NOT_FOUND, CONFLICT, GONE, INTERNAL
	Message  string
	Warnings []string
	Err      error
}

func (e *ServiceError) Error() string { return e.Message }
func (e *ServiceError) Unwrap() error { return e.Err }

func invalidArg(msg string, warnings ...string) *ServiceError {
	return &ServiceError{Code: "INVALID_ARGUMENT", Message: msg, Warnings: warnings}
}

func notFound(msg string) *ServiceError {
	return &ServiceError{Code: "NOT_FOUND", Message: msg}
}

func conflict(msg string, warnings ...string) *ServiceError {
	return &ServiceError{Code: "CONFLICT", Message: msg, Warnings: warnings}
}

func gone(msg string, warnings ...string) *ServiceError {
	return &ServiceError{Code: "GONE", Message: msg, Warnings: warnings}
}
