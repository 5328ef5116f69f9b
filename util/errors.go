package util

import "fmt"

type PetroError struct {
	Message string
	Err     error
}

func (e *PetroError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *PetroError) Unwrap() error {
	return e.Err
}

// PageStoreInitError is returned when the backing store is unreadable or its
// sentinel page is missing or malformed.
type PageStoreInitError struct {
	*PetroError
}

// RecordManagerError reports an engine-side failure while mutating or reading
// table data: storage faults, encoding mismatches, allocation failures.
type RecordManagerError struct {
	*PetroError
}

// SemanticError reports a client mistake detected before any mutation.
type SemanticError struct {
	*PetroError
}

// CommandExecutionError wraps an engine failure raised while executing a command.
type CommandExecutionError struct {
	*PetroError
}

func NewPageStoreInitError(err error, format string, args ...any) error {
	return &PageStoreInitError{&PetroError{Message: fmt.Sprintf(format, args...), Err: err}}
}

func NewRecordManagerError(err error, format string, args ...any) error {
	return &RecordManagerError{&PetroError{Message: fmt.Sprintf(format, args...), Err: err}}
}

func NewSemanticError(format string, args ...any) error {
	return &SemanticError{&PetroError{Message: fmt.Sprintf(format, args...)}}
}

func NewCommandExecutionError(err error) error {
	return &CommandExecutionError{&PetroError{Message: "RME", Err: err}}
}
